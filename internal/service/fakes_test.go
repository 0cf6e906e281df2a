package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"
)

// memStore is an in-memory stand-in for the SQL store. It satisfies every
// store port the services consume, with checkout transactions implemented as
// snapshot-and-restore so a failed transaction leaves no trace.
type memStore struct {
	mu sync.Mutex

	products    map[int64]*models.Product
	categories  []models.Category
	cartLines   map[int64]*models.CartLine
	orders      map[int64]*models.Order
	orderItems  []models.OrderItem
	users       map[int64]*models.User
	customers   map[int64]*models.Customer
	wishlist    []models.WishlistEntry
	nextLineID  int64
	nextOrderID int64
	nextItemID  int64
	nextUserID  int64
}

func newMemStore() *memStore {
	return &memStore{
		products:  make(map[int64]*models.Product),
		cartLines: make(map[int64]*models.CartLine),
		orders:    make(map[int64]*models.Order),
		users:     make(map[int64]*models.User),
		customers: make(map[int64]*models.Customer),
	}
}

func (m *memStore) addProduct(p models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := p
	m.products[p.ID] = &cp
}

func (m *memStore) addCartLine(userID, productID int64, qty int) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextLineID++
	m.cartLines[m.nextLineID] = &models.CartLine{
		ID:        m.nextLineID,
		UserID:    userID,
		ProductID: productID,
		Quantity:  qty,
		AddedAt:   time.Now(),
	}
	return m.nextLineID
}

func (m *memStore) stockOf(productID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[productID].Stock
}

func (m *memStore) cartSize(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, line := range m.cartLines {
		if line.UserID == userID {
			n++
		}
	}
	return n
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type memSnapshot struct {
	products    map[int64]*models.Product
	cartLines   map[int64]*models.CartLine
	orders      map[int64]*models.Order
	orderItems  []models.OrderItem
	nextOrderID int64
	nextItemID  int64
}

func (m *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		products:    make(map[int64]*models.Product, len(m.products)),
		cartLines:   make(map[int64]*models.CartLine, len(m.cartLines)),
		orders:      make(map[int64]*models.Order, len(m.orders)),
		orderItems:  append([]models.OrderItem(nil), m.orderItems...),
		nextOrderID: m.nextOrderID,
		nextItemID:  m.nextItemID,
	}
	for id, p := range m.products {
		cp := *p
		snap.products[id] = &cp
	}
	for id, l := range m.cartLines {
		cp := *l
		snap.cartLines[id] = &cp
	}
	for id, o := range m.orders {
		cp := *o
		snap.orders[id] = &cp
	}
	return snap
}

func (m *memStore) restore(snap memSnapshot) {
	m.products = snap.products
	m.cartLines = snap.cartLines
	m.orders = snap.orders
	m.orderItems = snap.orderItems
	m.nextOrderID = snap.nextOrderID
	m.nextItemID = snap.nextItemID
}

// WithinCheckoutTx serializes transactions with the store mutex, mirroring
// the row-lock exclusion the real store gets from FOR UPDATE.
func (m *memStore) WithinCheckoutTx(ctx context.Context, fn func(tx store.CheckoutTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&memTx{m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memTx struct {
	m *memStore
}

func (t *memTx) CartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	var lines []models.CartLine
	for _, line := range t.m.cartLines {
		if line.UserID == userID {
			lines = append(lines, *line)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

func (t *memTx) ProductForUpdate(ctx context.Context, productID int64) (*models.Product, error) {
	p, ok := t.m.products[productID]
	if !ok {
		return nil, fmt.Errorf("product not found: %d", productID)
	}
	cp := *p
	return &cp, nil
}

func (t *memTx) CreateOrder(ctx context.Context, order *models.Order) error {
	t.m.nextOrderID++
	order.ID = t.m.nextOrderID
	order.CreatedAt = time.Now()
	cp := *order
	t.m.orders[order.ID] = &cp
	return nil
}

func (t *memTx) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	t.m.nextItemID++
	item.ID = t.m.nextItemID
	t.m.orderItems = append(t.m.orderItems, *item)
	return nil
}

func (t *memTx) DecrementStock(ctx context.Context, productID int64, qty int) error {
	p, ok := t.m.products[productID]
	if !ok {
		return fmt.Errorf("product not found: %d", productID)
	}
	if p.Stock < qty {
		return fmt.Errorf("stock underflow prevented for product %d", productID)
	}
	p.Stock -= qty
	return nil
}

func (t *memTx) ClearCart(ctx context.Context, userID int64) error {
	for id, line := range t.m.cartLines {
		if line.UserID == userID {
			delete(t.m.cartLines, id)
		}
	}
	return nil
}

// OrderStore

func (m *memStore) GetOrderForUser(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok || order.UserID != userID {
		return nil, fmt.Errorf("order not found: %d", orderID)
	}
	cp := *order
	return &cp, nil
}

func (m *memStore) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var orders []models.Order
	for _, order := range m.orders {
		if order.UserID == userID {
			orders = append(orders, *order)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	return orders, nil
}

func (m *memStore) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []models.OrderItem
	for _, item := range m.orderItems {
		if item.OrderID == orderID {
			items = append(items, item)
		}
	}
	return items, nil
}

// CartStore

func (m *memStore) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product not found: %d", id)
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) GetProductStock(ctx context.Context, id int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return 0, fmt.Errorf("product not found: %d", id)
	}
	return p.Stock, nil
}

func (m *memStore) GetProducts(ctx context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var products []models.Product
	for _, p := range m.products {
		products = append(products, *p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (m *memStore) GetCartView(ctx context.Context, userID int64) ([]models.CartView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var views []models.CartView
	for _, line := range m.cartLines {
		if line.UserID != userID {
			continue
		}
		p := m.products[line.ProductID]
		views = append(views, models.CartView{
			CartLine:    *line,
			ProductName: p.Name,
			Price:       p.Price,
			Stock:       p.Stock,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views, nil
}

func (m *memStore) UpsertCartLine(ctx context.Context, userID, productID int64, qty int) (*models.CartLine, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, line := range m.cartLines {
		if line.UserID == userID && line.ProductID == productID {
			line.Quantity += qty
			cp := *line
			return &cp, false, nil
		}
	}
	m.nextLineID++
	line := &models.CartLine{
		ID:        m.nextLineID,
		UserID:    userID,
		ProductID: productID,
		Quantity:  qty,
		AddedAt:   time.Now(),
	}
	m.cartLines[line.ID] = line
	cp := *line
	return &cp, true, nil
}

func (m *memStore) DeleteCartLine(ctx context.Context, lineID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	line, ok := m.cartLines[lineID]
	if !ok || line.UserID != userID {
		return false, nil
	}
	delete(m.cartLines, lineID)
	return true, nil
}

// CatalogStore

func (m *memStore) ListProducts(ctx context.Context, search string, categoryID int64, limit, offset int) ([]models.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []models.Product
	for _, p := range m.products {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(search)) {
			continue
		}
		if categoryID != 0 && p.CategoryID != categoryID {
			continue
		}
		matched = append(matched, *p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *memStore) RecentProducts(ctx context.Context, limit int) ([]models.Product, error) {
	products, _, err := m.ListProducts(ctx, "", 0, limit, 0)
	return products, err
}

func (m *memStore) FeaturedProducts(ctx context.Context, limit int) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var featured []models.Product
	for _, p := range m.products {
		if p.Featured {
			featured = append(featured, *p)
		}
	}
	sort.Slice(featured, func(i, j int) bool { return featured[i].ID > featured[j].ID })
	if len(featured) > limit {
		featured = featured[:limit]
	}
	return featured, nil
}

func (m *memStore) IncrementProductViews(ctx context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return 0, fmt.Errorf("product not found: %d", id)
	}
	p.Views++
	return p.Views, nil
}

func (m *memStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Category(nil), m.categories...), nil
}

// WishlistStore

func (m *memStore) AddWishlistEntry(ctx context.Context, userID, productID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.wishlist {
		if e.UserID == userID && e.ProductID == productID {
			return false, nil
		}
	}
	m.wishlist = append(m.wishlist, models.WishlistEntry{
		UserID:    userID,
		ProductID: productID,
		AddedAt:   time.Now(),
	})
	return true, nil
}

func (m *memStore) DeleteWishlistEntry(ctx context.Context, userID, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.wishlist[:0]
	for _, e := range m.wishlist {
		if e.UserID != userID || e.ProductID != productID {
			kept = append(kept, e)
		}
	}
	m.wishlist = kept
	return nil
}

func (m *memStore) WishlistProductIDs(ctx context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for _, e := range m.wishlist {
		if e.UserID == userID {
			ids = append(ids, e.ProductID)
		}
	}
	return ids, nil
}

func (m *memStore) WishlistProducts(ctx context.Context, userID int64) ([]models.Product, error) {
	ids, err := m.WishlistProductIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var products []models.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			products = append(products, *p)
		}
	}
	return products, nil
}

// AccountStore

func (m *memStore) CreateUserWithProfile(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return store.ErrUsernameTaken
		}
	}
	m.nextUserID++
	user.ID = m.nextUserID
	user.CreatedAt = time.Now()
	cp := *user
	m.users[user.ID] = &cp
	m.customers[user.ID] = &models.Customer{UserID: user.ID, JoinedAt: time.Now()}
	return nil
}

func (m *memStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) EnsureCustomer(ctx context.Context, userID int64) (*models.Customer, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.customers[userID]; ok {
		cp := *c
		return &cp, false, nil
	}
	c := &models.Customer{UserID: userID, JoinedAt: time.Now()}
	m.customers[userID] = c
	cp := *c
	return &cp, true, nil
}

func (m *memStore) GetCustomer(ctx context.Context, userID int64) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[userID]
	if !ok {
		return nil, fmt.Errorf("customer profile not found: %d", userID)
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) CompleteProfile(ctx context.Context, userID int64, phone, address string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[userID]
	if !ok || c.ProfileCompleted {
		return false, nil
	}
	c.Phone = phone
	c.Address = address
	c.ProfileCompleted = true
	return true, nil
}

// memSessions is an in-memory SessionStore
type memSessions struct {
	mu       sync.Mutex
	sessions map[string]int64
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]int64)}
}

func (s *memSessions) SetSession(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = userID
	return nil
}

func (s *memSessions) GetSession(ctx context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[token], nil
}

func (s *memSessions) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// memStockCache is an in-memory StockCache. A missing product behaves like a
// cache miss, and failing can force the DB fallback path.
type memStockCache struct {
	mu      sync.Mutex
	stock   map[int64]int
	failing bool
}

func newMemStockCache() *memStockCache {
	return &memStockCache{stock: make(map[int64]int)}
}

var errCacheUnavailable = errors.New("cache unavailable")

func (c *memStockCache) Stock(ctx context.Context, productID int64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return 0, errCacheUnavailable
	}
	stock, ok := c.stock[productID]
	if !ok {
		return 0, errCacheUnavailable
	}
	return stock, nil
}

func (c *memStockCache) SetStock(ctx context.Context, productID int64, stock int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errCacheUnavailable
	}
	c.stock[productID] = stock
	return nil
}

// memPublisher records published events
type memPublisher struct {
	mu       sync.Mutex
	placed   []*models.OrderPlacedEvent
	depleted []*models.StockDepletedEvent
}

func (p *memPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = append(p.placed, event)
	return nil
}

func (p *memPublisher) PublishStockDepleted(ctx context.Context, event *models.StockDepletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.depleted = append(p.depleted, event)
	return nil
}
