package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// mockUserRepository is an in-memory UserRepository keyed by user ID.
type mockUserRepository struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*domain.User
	addresses map[uuid.UUID][]domain.Address
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:     make(map[uuid.UUID]*domain.User),
		addresses: make(map[uuid.UUID][]domain.Address),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Phone == user.Phone {
			return repository.ErrUserAlreadyExists
		}
		if existing.Email != nil && user.Email != nil && *existing.Email == *user.Email {
			return repository.ErrUserAlreadyExists
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Phone == identifier {
			return user, nil
		}
		if user.Email != nil && *user.Email == identifier {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) FindByResetTokenHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ResetTokenHash != nil && *user.ResetTokenHash == tokenHash {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) FindByVerifyTokenHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.VerifyTokenHash != nil && *user.VerifyTokenHash == tokenHash {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.ResetTokenHash = &tokenHash
	user.ResetTokenExpiresAt = &expiresAt
	return nil
}

func (m *mockUserRepository) SetVerifyToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.VerifyTokenHash = &tokenHash
	user.VerifyTokenExpiresAt = &expiresAt
	return nil
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	user.ResetTokenHash = nil
	user.ResetTokenExpiresAt = nil
	return nil
}

func (m *mockUserRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.IsVerified = true
	user.VerifyTokenHash = nil
	user.VerifyTokenExpiresAt = nil
	return nil
}

func (m *mockUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]*domain.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	return users, nil
}

func (m *mockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.users, id)
	delete(m.addresses, id)
	return nil
}

func (m *mockUserRepository) ReplaceAddresses(ctx context.Context, userID uuid.UUID, addresses []domain.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addresses[userID] = addresses
	return nil
}

func (m *mockUserRepository) ListAddresses(ctx context.Context, userID uuid.UUID) ([]domain.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addresses[userID], nil
}

// mockProductRepository is an in-memory ProductRepository keyed by product ID.
type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *mockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error) {
	products := []*domain.Product{}
	for _, id := range ids {
		if product, ok := m.products[id]; ok {
			products = append(products, product)
		}
	}
	return products, nil
}

func (m *mockProductRepository) List(ctx context.Context, featuredOnly bool) ([]*domain.Product, error) {
	products := []*domain.Product{}
	for _, product := range m.products {
		if featuredOnly && !product.IsFeatured {
			continue
		}
		products = append(products, product)
	}
	return products, nil
}

// mockCartRepository keeps cart rows in insertion order, one per
// (user, product) pair.
type mockCartRepository struct {
	items          []*domain.CartItem
	deleteBatchErr error
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{}
}

func (m *mockCartRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartItem, error) {
	items := []*domain.CartItem{}
	for _, item := range m.items {
		if item.UserID == userID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *mockCartRepository) FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.CartItem, error) {
	for _, item := range m.items {
		if item.UserID == userID && item.ProductID == productID {
			return item, nil
		}
	}
	return nil, repository.ErrCartItemNotFound
}

func (m *mockCartRepository) Insert(ctx context.Context, item *domain.CartItem) error {
	m.items = append(m.items, item)
	return nil
}

func (m *mockCartRepository) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	for _, item := range m.items {
		if item.UserID == userID && item.ProductID == productID {
			item.Quantity = quantity
			return nil
		}
	}
	return repository.ErrCartItemNotFound
}

func (m *mockCartRepository) Delete(ctx context.Context, userID, productID uuid.UUID) error {
	kept := m.items[:0]
	for _, item := range m.items {
		if item.UserID != userID || item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	m.items = kept
	return nil
}

func (m *mockCartRepository) DeleteByUserAndProducts(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) error {
	if m.deleteBatchErr != nil {
		return m.deleteBatchErr
	}
	purchased := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		purchased[id] = true
	}
	kept := m.items[:0]
	for _, item := range m.items {
		if item.UserID == userID && purchased[item.ProductID] {
			continue
		}
		kept = append(kept, item)
	}
	m.items = kept
	return nil
}

// mockOrderRepository is an in-memory OrderRepository keyed by order ID.
type mockOrderRepository struct {
	orders map[uuid.UUID]*domain.Order
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	stored := *order
	stored.StatusHistory = append([]domain.StatusChange{}, order.StatusHistory...)
	m.orders[order.ID] = &stored
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	found := *order
	found.StatusHistory = append([]domain.StatusChange{}, order.StatusHistory...)
	return &found, nil
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	orders := []*domain.Order{}
	for _, order := range m.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (m *mockOrderRepository) ListAll(ctx context.Context) ([]*domain.Order, error) {
	orders := []*domain.Order{}
	for _, order := range m.orders {
		orders = append(orders, order)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, order *domain.Order, change domain.StatusChange) error {
	stored, ok := m.orders[order.ID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	stored.Status = order.Status
	stored.IsDelivered = order.IsDelivered
	stored.DeliveredAt = order.DeliveredAt
	stored.StatusHistory = append(stored.StatusHistory, change)
	return nil
}

// mockWishlistRepository keeps per-user product IDs in insertion order.
type mockWishlistRepository struct {
	entries map[uuid.UUID][]uuid.UUID
}

func newMockWishlistRepository() *mockWishlistRepository {
	return &mockWishlistRepository{entries: make(map[uuid.UUID][]uuid.UUID)}
}

func (m *mockWishlistRepository) Add(ctx context.Context, userID, productID uuid.UUID) error {
	for _, id := range m.entries[userID] {
		if id == productID {
			return nil
		}
	}
	m.entries[userID] = append(m.entries[userID], productID)
	return nil
}

func (m *mockWishlistRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	kept := m.entries[userID][:0]
	for _, id := range m.entries[userID] {
		if id != productID {
			kept = append(kept, id)
		}
	}
	m.entries[userID] = kept
	return nil
}

func (m *mockWishlistRepository) Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	for _, id := range m.entries[userID] {
		if id == productID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockWishlistRepository) ListProductIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return m.entries[userID], nil
}

// sentEmail records one outgoing message from the mock mailer.
type sentEmail struct {
	Kind    string
	To      string
	Name    string
	Token   string
	OrderID string
	Total   float64
}

// mockMailer delivers into a buffered channel so tests can wait for mail
// dispatched on background goroutines.
type mockMailer struct {
	sent chan sentEmail
}

func newMockMailer() *mockMailer {
	return &mockMailer{sent: make(chan sentEmail, 16)}
}

func (m *mockMailer) SendVerificationEmail(to, name, rawToken string) error {
	m.sent <- sentEmail{Kind: "verification", To: to, Name: name, Token: rawToken}
	return nil
}

func (m *mockMailer) SendPasswordResetEmail(to, name, rawToken string) error {
	m.sent <- sentEmail{Kind: "reset", To: to, Name: name, Token: rawToken}
	return nil
}

func (m *mockMailer) SendOrderConfirmation(to, name, orderID string, total float64) error {
	m.sent <- sentEmail{Kind: "order", To: to, Name: name, OrderID: orderID, Total: total}
	return nil
}

// waitForEmail blocks until a message arrives or the timeout passes.
func (m *mockMailer) waitForEmail(timeout time.Duration) (sentEmail, bool) {
	select {
	case email := <-m.sent:
		return email, true
	case <-time.After(timeout):
		return sentEmail{}, false
	}
}

// mockPublisher records published events synchronously.
type mockPublisher struct {
	placed        []uuid.UUID
	statusChanges []domain.OrderStatus
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{}
}

func (m *mockPublisher) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	m.placed = append(m.placed, order.ID)
	return nil
}

func (m *mockPublisher) PublishOrderStatusChanged(ctx context.Context, order *domain.Order, updatedBy uuid.UUID) error {
	m.statusChanges = append(m.statusChanges, order.Status)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

// mockPhoneVerifier maps proof tokens to the phone numbers they attest.
type mockPhoneVerifier struct {
	phones map[string]string
}

func newMockPhoneVerifier() *mockPhoneVerifier {
	return &mockPhoneVerifier{phones: make(map[string]string)}
}

func (m *mockPhoneVerifier) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	phone, ok := m.phones[idToken]
	if !ok {
		return "", errors.New("unknown phone token")
	}
	return phone, nil
}
