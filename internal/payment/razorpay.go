package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

var (
	ErrGateway           = errors.New("payment gateway request failed")
	ErrSignatureMismatch = errors.New("payment signature verification failed")
)

const defaultBaseURL = "https://api.razorpay.com"

// GatewayOrder is the remote order handle returned by the payment provider.
type GatewayOrder struct {
	ID       string `json:"id"`
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

// Gateway is a Razorpay client. The key secret doubles as the HMAC key for
// payment-signature verification, the only trust boundary between the
// client's "payment succeeded" claim and the server.
type Gateway struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

// NewGateway creates a Razorpay client with the given credentials.
func NewGateway(keyID, keySecret string) *Gateway {
	return &Gateway{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// NewGatewayWithBaseURL is used by tests to point the client at a stub server.
func NewGatewayWithBaseURL(keyID, keySecret, baseURL string) *Gateway {
	g := NewGateway(keyID, keySecret)
	g.baseURL = baseURL
	return g
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateOrder registers a remote order for the given total, expressed in
// rupees. The gateway works in paise, the smallest currency unit.
func (g *Gateway) CreateOrder(ctx context.Context, total float64) (*GatewayOrder, error) {
	receipt, err := randomReceipt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate receipt: %w", err)
	}

	body, err := json.Marshal(createOrderRequest{
		Amount:   int64(math.Round(total * 100)),
		Currency: "INR",
		Receipt:  receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrGateway, resp.StatusCode)
	}

	var order GatewayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrGateway, err)
	}

	return &order, nil
}

// VerifySignature recomputes the HMAC-SHA256 of "orderID|paymentID" under the
// key secret and compares it to the supplied signature in constant time.
func (g *Gateway) VerifySignature(orderID, paymentID, signature string) error {
	mac := hmac.New(sha256.New, []byte(g.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

func randomReceipt() (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
