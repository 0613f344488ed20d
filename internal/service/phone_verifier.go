package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// httpPhoneVerifier checks OTP ID tokens against an external issuer over
// HTTP. The issuer returns the phone number the token was minted for.
type httpPhoneVerifier struct {
	verifyURL  string
	httpClient *http.Client
}

// NewHTTPPhoneVerifier creates a PhoneTokenVerifier backed by the issuer at
// verifyURL. An empty URL yields a verifier that rejects every token, which
// keeps the phone strategy safe when left unconfigured.
func NewHTTPPhoneVerifier(verifyURL string) PhoneTokenVerifier {
	if verifyURL == "" {
		return rejectAllVerifier{}
	}
	return &httpPhoneVerifier{
		verifyURL: verifyURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (v *httpPhoneVerifier) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	body, err := json.Marshal(map[string]string{"id_token": idToken})
	if err != nil {
		return "", fmt.Errorf("failed to encode verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("phone verifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("phone verifier rejected token: status %d", resp.StatusCode)
	}

	var payload struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode verifier response: %w", err)
	}
	if payload.Phone == "" {
		return "", fmt.Errorf("verifier response missing phone")
	}

	return payload.Phone, nil
}

type rejectAllVerifier struct{}

func (rejectAllVerifier) VerifyIDToken(context.Context, string) (string, error) {
	return "", fmt.Errorf("phone verification is not configured")
}
