package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"puntoventa/backend/internal/domain"
	"puntoventa/backend/internal/identity"
	"puntoventa/backend/internal/store"
)

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	categories      map[string]domain.Category
	customers       map[string]domain.Customer
	salesByID       map[string]domain.Sale
	saleNumbers     map[string]struct{}
	payments        []domain.Payment
	movements       []domain.StockMovement
	registers       map[string]domain.CashRegister
	shiftsByID      map[string]domain.Shift
	openShiftByUser map[string]string
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables, with hardcoded dev defaults when unset. The memory
// store is never used in production (PostgreSQL takes over when DATABASE_URL
// is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		id       string
		username string
		password string
		role     string
		fullName string
	}{
		{"user-admin", "admin", adminPwd, "admin", "Administrator"},
		{"user-cashier", "cashier", cashierPwd, "cashier", "Front Cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			ID:        u.id,
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			FullName:  u.fullName,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func NewSeeded() *Store {
	now := time.Now().UTC()

	categories := []domain.Category{
		{ID: "cat-beverage", Name: "Beverages", Color: "#1976d2", Active: true, CreatedAt: now},
		{ID: "cat-grocery", Name: "Grocery", Color: "#388e3c", Active: true, CreatedAt: now},
		{ID: "cat-bakery", Name: "Bakery", Color: "#f57c00", Active: true, CreatedAt: now},
	}

	products := []domain.Product{
		{ID: "prod-coffee", SKU: "SKU-COFFEE-01", Name: "Ground Coffee 500g", CategoryID: "cat-beverage", Category: "Beverages", Price: dec("8.50"), Cost: dec("5.10"), Stock: dec("40"), MinStock: dec("10"), Unit: "unit", TaxRate: dec("0.16"), Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: "prod-milk", SKU: "SKU-MILK-01", Name: "Whole Milk 1L", CategoryID: "cat-grocery", Category: "Grocery", Price: dec("1.80"), Cost: dec("1.20"), Stock: dec("60"), MinStock: dec("12"), Unit: "unit", TaxRate: dec("0"), Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: "prod-bread", SKU: "SKU-BREAD-01", Name: "Sliced Bread", CategoryID: "cat-bakery", Category: "Bakery", Price: dec("2.40"), Cost: dec("1.10"), Stock: dec("25"), MinStock: dec("8"), Unit: "unit", TaxRate: dec("0"), Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: "prod-rice", SKU: "SKU-RICE-01", Name: "Rice 1kg", CategoryID: "cat-grocery", Category: "Grocery", Price: dec("3.20"), Cost: dec("2.30"), Stock: dec("80"), MinStock: dec("20"), Unit: "kg", TaxRate: dec("0"), Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: "prod-cheese", SKU: "SKU-CHEESE-01", Name: "Gouda Cheese (per kg)", CategoryID: "cat-grocery", Category: "Grocery", Price: dec("12.40"), Cost: dec("8.90"), Stock: dec("7.500"), MinStock: dec("2"), Unit: "kg", TaxRate: dec("0.16"), Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: "prod-soda", SKU: "SKU-SODA-01", Name: "Cola 600ml", CategoryID: "cat-beverage", Category: "Beverages", Price: dec("1.50"), Cost: dec("0.90"), Stock: dec("5"), MinStock: dec("24"), Unit: "unit", TaxRate: dec("0.16"), Active: true, CreatedAt: now, UpdatedAt: now},
	}

	customers := []domain.Customer{
		{ID: "cust-walkin", Name: "Ana Torres", Email: "ana@example.com", Phone: "555-0101", LoyaltyPoints: dec("12"), Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: "cust-regular", Name: "Luis Mendoza", Phone: "555-0102", LoyaltyPoints: dec("0"), Active: true, CreatedAt: now, UpdatedAt: now},
	}

	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}
	categoryMap := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		categoryMap[c.ID] = c
	}
	customerMap := make(map[string]domain.Customer, len(customers))
	for _, c := range customers {
		customerMap[c.ID] = c
	}

	return &Store{
		products:   productMap,
		categories: categoryMap,
		customers:  customerMap,
		salesByID:  make(map[string]domain.Sale),
		saleNumbers: make(map[string]struct{}),
		payments:   make([]domain.Payment, 0, 64),
		movements:  make([]domain.StockMovement, 0, 128),
		registers: map[string]domain.CashRegister{
			"reg-main":   {ID: "reg-main", Name: "Main Register", Location: "Front counter", Active: true},
			"reg-closed": {ID: "reg-closed", Name: "Old Register", Active: false},
		},
		shiftsByID:      make(map[string]domain.Shift),
		openShiftByUser: make(map[string]string),
		usersByUsername: seedUsers(),
	}
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		products = append(products, p)
	}
	sortProductsByName(products)
	return products, nil
}

func (s *Store) ListLowStockProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, 16)
	for _, p := range s.products {
		if !p.Active || p.Stock.Cmp(p.MinStock) > 0 {
			continue
		}
		products = append(products, p)
	}
	sortProductsByName(products)
	return products, nil
}

func sortProductsByName(products []domain.Product) {
	slices.SortFunc(products, func(a, b domain.Product) int {
		return strings.Compare(a.Name, b.Name)
	})
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.SKU == "" || product.Name == "" || product.Price.Sign() <= 0 {
		return nil, store.ErrInvalidSale
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.products {
		if existing.SKU == product.SKU {
			return nil, store.ErrInvalidSale
		}
	}

	if product.ID == "" {
		product.ID = identity.New()
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	product.Active = true
	if cat, ok := s.categories[product.CategoryID]; ok {
		product.Category = cat.Name
	}

	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := product
	return &found, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Price.Sign() <= 0 {
		return nil, store.ErrInvalidSale
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	product.Stock = existing.Stock
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	if cat, ok := s.categories[product.CategoryID]; ok {
		product.Category = cat.Name
	} else {
		product.Category = ""
	}

	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeactivateProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	product.Active = false
	product.UpdatedAt = time.Now().UTC()
	s.products[id] = product
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if !c.Active {
			continue
		}
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return strings.Compare(a.Name, b.Name)
	})
	return categories, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	if category.Name == "" {
		return nil, store.ErrInvalidSale
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categories {
		if strings.EqualFold(existing.Name, category.Name) {
			return nil, store.ErrInvalidSale
		}
	}

	if category.ID == "" {
		category.ID = identity.New()
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}
	category.Active = true
	s.categories[category.ID] = category
	created := category
	return &created, nil
}

func (s *Store) ListCustomers(_ context.Context, search string, limit int) ([]domain.Customer, error) {
	if limit < 1 {
		limit = 100
	}
	needle := strings.ToLower(strings.TrimSpace(search))

	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if !c.Active {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(c.Name), needle) &&
			!strings.Contains(strings.ToLower(c.Email), needle) &&
			!strings.Contains(c.Phone, needle) {
			continue
		}
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return strings.Compare(a.Name, b.Name)
	})
	if len(customers) > limit {
		customers = customers[:limit]
	}
	return customers, nil
}

func (s *Store) GetCustomerByID(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := customer
	return &found, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrInvalidSale
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" {
		customer.ID = identity.New()
	}
	now := time.Now().UTC()
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = now
	}
	customer.UpdatedAt = now
	customer.Active = true
	s.customers[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.ID == "" || customer.Name == "" {
		return nil, store.ErrInvalidSale
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[customer.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	customer.LoyaltyPoints = existing.LoyaltyPoints
	customer.CreatedAt = existing.CreatedAt
	customer.UpdatedAt = time.Now().UTC()
	s.customers[customer.ID] = customer
	updated := customer
	return &updated, nil
}

func (s *Store) DeactivateCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[id]
	if !ok {
		return store.ErrNotFound
	}
	customer.Active = false
	customer.UpdatedAt = time.Now().UTC()
	s.customers[id] = customer
	return nil
}

func (s *Store) ListCustomerSales(_ context.Context, customerID string, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, 16)
	for _, sale := range s.salesByID {
		if sale.CustomerID != customerID {
			continue
		}
		sales = append(sales, sale)
	}
	sortSalesNewestFirst(sales)
	if len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

func (s *Store) AddLoyaltyPoints(_ context.Context, customerID string, points decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[customerID]
	if !ok {
		return store.ErrNotFound
	}
	customer.LoyaltyPoints = customer.LoyaltyPoints.Add(points)
	customer.UpdatedAt = time.Now().UTC()
	s.customers[customerID] = customer
	return nil
}

// CommitSale validates the whole cart against stock before touching any
// state, so a failing line leaves no partial artifacts behind. This mirrors
// the transactional rollback the postgres store gets from the database.
func (s *Store) CommitSale(_ context.Context, sale domain.Sale, payment domain.Payment) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidSale
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ID == "" {
		sale.ID = identity.New()
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	if sale.Status == "" {
		sale.Status = domain.SaleStatusCompleted
	}
	if sale.PaymentStatus == "" {
		sale.PaymentStatus = domain.PaymentStatusPaid
	}
	if _, exists := s.saleNumbers[sale.SaleNumber]; exists {
		return nil, store.ErrInvalidSale
	}

	remaining := make(map[string]decimal.Decimal, len(sale.Items))
	for i := range sale.Items {
		item := &sale.Items[i]
		if item.Quantity.Sign() <= 0 {
			return nil, store.ErrInvalidSale
		}
		product, ok := s.products[item.ProductID]
		if !ok || !product.Active {
			return nil, store.ErrNotFound
		}
		left, tracked := remaining[item.ProductID]
		if !tracked {
			left = product.Stock
		}
		if left.Cmp(item.Quantity) < 0 {
			return nil, store.ErrInsufficientStock
		}
		remaining[item.ProductID] = left.Sub(item.Quantity)
		item.ProductName = product.Name
		if item.ID == "" {
			item.ID = identity.New()
		}
	}

	for productID, left := range remaining {
		product := s.products[productID]
		product.Stock = left
		product.UpdatedAt = sale.CreatedAt
		s.products[productID] = product
	}
	for _, item := range sale.Items {
		s.movements = append(s.movements, domain.StockMovement{
			ID:          identity.New(),
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Kind:        domain.MovementKindSale,
			Quantity:    item.Quantity.Neg(),
			ReferenceID: sale.ID,
			UserID:      sale.UserID,
			CreatedAt:   sale.CreatedAt,
		})
	}

	if payment.ID == "" {
		payment.ID = identity.New()
	}
	payment.SaleID = sale.ID
	if payment.Status == "" {
		payment.Status = "completed"
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = sale.CreatedAt
	}
	s.payments = append(s.payments, payment)

	s.salesByID[sale.ID] = sale
	s.saleNumbers[sale.SaleNumber] = struct{}{}

	saved := sale
	return &saved, nil
}

func (s *Store) ListSales(_ context.Context, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		sale.Items = nil
		sales = append(sales, sale)
	}
	sortSalesNewestFirst(sales)
	if len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

func sortSalesNewestFirst(sales []domain.Sale) {
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

func (s *Store) GetSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := sale
	found.Items = slices.Clone(sale.Items)
	return &found, nil
}

func (s *Store) ApplyStockMovement(_ context.Context, movement domain.StockMovement) (*domain.StockMovement, error) {
	if movement.ProductID == "" || movement.Quantity.Sign() == 0 {
		return nil, store.ErrInvalidSale
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[movement.ProductID]
	if !ok || !product.Active {
		return nil, store.ErrNotFound
	}

	if movement.ID == "" {
		movement.ID = identity.New()
	}
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now().UTC()
	}
	movement.ProductName = product.Name

	product.Stock = product.Stock.Add(movement.Quantity)
	product.UpdatedAt = movement.CreatedAt
	s.products[movement.ProductID] = product
	s.movements = append(s.movements, movement)

	saved := movement
	return &saved, nil
}

func (s *Store) ListStockMovements(_ context.Context, limit int) ([]domain.StockMovement, error) {
	if limit < 1 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	movements := slices.Clone(s.movements)
	slices.SortFunc(movements, func(a, b domain.StockMovement) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(movements) > limit {
		movements = movements[:limit]
	}
	return movements, nil
}

func (s *Store) ListRegisters(_ context.Context) ([]domain.CashRegister, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	registers := make([]domain.CashRegister, 0, len(s.registers))
	for _, r := range s.registers {
		if !r.Active {
			continue
		}
		registers = append(registers, r)
	}
	slices.SortFunc(registers, func(a, b domain.CashRegister) int {
		return strings.Compare(a.Name, b.Name)
	})
	return registers, nil
}

func (s *Store) GetRegisterByID(_ context.Context, id string) (*domain.CashRegister, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	register, ok := s.registers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := register
	return &found, nil
}

func (s *Store) CreateShift(_ context.Context, shift domain.Shift) (*domain.Shift, error) {
	if strings.TrimSpace(shift.UserID) == "" || strings.TrimSpace(shift.RegisterID) == "" {
		return nil, store.ErrInvalidSale
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, open := s.openShiftByUser[shift.UserID]; open {
		return nil, store.ErrShiftAlreadyOpen
	}

	if shift.ID == "" {
		shift.ID = identity.New()
	}
	if shift.OpenedAt.IsZero() {
		shift.OpenedAt = time.Now().UTC()
	}
	shift.Status = domain.ShiftStatusOpen
	shift.ClosedAt = nil
	shift.ClosingBalance = nil
	shift.ExpectedBalance = nil
	shift.Difference = nil

	s.shiftsByID[shift.ID] = shift
	s.openShiftByUser[shift.UserID] = shift.ID

	saved := shift
	return &saved, nil
}

func (s *Store) CloseShift(_ context.Context, shiftID string, closingBalance decimal.Decimal, notes string, closedAt time.Time) (*domain.Shift, error) {
	if strings.TrimSpace(shiftID) == "" {
		return nil, store.ErrInvalidSale
	}
	if closedAt.IsZero() {
		closedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	shift, ok := s.shiftsByID[shiftID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if shift.Status != domain.ShiftStatusOpen {
		return nil, store.ErrShiftClosed
	}

	cashTotal := s.cashPaymentsForShiftLocked(shiftID)
	expected := shift.OpeningBalance.Add(cashTotal)
	difference := closingBalance.Sub(expected)

	shift.Status = domain.ShiftStatusClosed
	shift.ClosingBalance = &closingBalance
	shift.ExpectedBalance = &expected
	shift.Difference = &difference
	if notes != "" {
		shift.Notes = notes
	}
	shift.ClosedAt = &closedAt

	s.shiftsByID[shiftID] = shift
	delete(s.openShiftByUser, shift.UserID)

	closed := shift
	return &closed, nil
}

func (s *Store) cashPaymentsForShiftLocked(shiftID string) decimal.Decimal {
	total := decimal.Zero
	for _, payment := range s.payments {
		if payment.Method != domain.PaymentMethodCash || payment.Status != "completed" {
			continue
		}
		sale, ok := s.salesByID[payment.SaleID]
		if !ok || sale.ShiftID != shiftID || sale.Status != domain.SaleStatusCompleted {
			continue
		}
		total = total.Add(payment.Amount)
	}
	return total
}

func (s *Store) GetShiftByID(_ context.Context, id string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shift, ok := s.shiftsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := shift
	return &found, nil
}

func (s *Store) GetOpenShiftByUser(_ context.Context, userID string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shiftID, ok := s.openShiftByUser[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	shift := s.shiftsByID[shiftID]
	found := shift
	return &found, nil
}

func (s *Store) ListShifts(_ context.Context, limit int) ([]domain.Shift, error) {
	if limit < 1 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	shifts := make([]domain.Shift, 0, len(s.shiftsByID))
	for _, shift := range s.shiftsByID {
		shifts = append(shifts, shift)
	}
	slices.SortFunc(shifts, func(a, b domain.Shift) int {
		return b.OpenedAt.Compare(a.OpenedAt)
	})
	if len(shifts) > limit {
		shifts = shifts[:limit]
	}
	return shifts, nil
}

func (s *Store) GetShiftSummary(_ context.Context, shiftID string) (domain.ShiftSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.shiftsByID[shiftID]; !ok {
		return domain.ShiftSummary{}, store.ErrNotFound
	}

	summary := domain.ShiftSummary{ShiftID: shiftID}
	for _, sale := range s.salesByID {
		if sale.ShiftID != shiftID || sale.Status != domain.SaleStatusCompleted {
			continue
		}
		summary.TotalSales = summary.TotalSales.Add(sale.Total)
		summary.TotalTransactions++
	}
	for _, payment := range s.payments {
		if payment.Status != "completed" {
			continue
		}
		sale, ok := s.salesByID[payment.SaleID]
		if !ok || sale.ShiftID != shiftID || sale.Status != domain.SaleStatusCompleted {
			continue
		}
		switch payment.Method {
		case domain.PaymentMethodCash:
			summary.CashSales = summary.CashSales.Add(payment.Amount)
		case domain.PaymentMethodCard, domain.PaymentMethodDebit, domain.PaymentMethodCredit:
			summary.CardSales = summary.CardSales.Add(payment.Amount)
		default:
			summary.OtherSales = summary.OtherSales.Add(payment.Amount)
		}
	}
	return summary, nil
}

func (s *Store) GetSalesSummary(_ context.Context, from time.Time, to time.Time) (domain.SalesSummaryReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := domain.SalesSummaryReport{
		From: from.UTC().Format("2006-01-02"),
		To:   to.UTC().Format("2006-01-02"),
	}
	inRange := func(at time.Time) bool {
		return !at.Before(from) && at.Before(to)
	}

	for _, sale := range s.salesByID {
		if sale.Status != domain.SaleStatusCompleted || !inRange(sale.CreatedAt) {
			continue
		}
		report.TotalSales = report.TotalSales.Add(sale.Total)
		report.Transactions++
	}
	if report.Transactions > 0 {
		report.AverageTicket = report.TotalSales.Div(decimal.NewFromInt(report.Transactions)).Round(2)
	}
	for _, payment := range s.payments {
		if payment.Status != "completed" {
			continue
		}
		sale, ok := s.salesByID[payment.SaleID]
		if !ok || sale.Status != domain.SaleStatusCompleted || !inRange(sale.CreatedAt) {
			continue
		}
		switch payment.Method {
		case domain.PaymentMethodCash:
			report.CashSales = report.CashSales.Add(payment.Amount)
		case domain.PaymentMethodCard, domain.PaymentMethodDebit, domain.PaymentMethodCredit:
			report.CardSales = report.CardSales.Add(payment.Amount)
		default:
			report.OtherSales = report.OtherSales.Add(payment.Amount)
		}
	}
	return report, nil
}

func (s *Store) GetTopProducts(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.TopProductRow, error) {
	if limit < 1 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type aggregate struct {
		name     string
		quantity decimal.Decimal
		revenue  decimal.Decimal
	}
	byProduct := make(map[string]aggregate)
	for _, sale := range s.salesByID {
		if sale.Status != domain.SaleStatusCompleted || sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		for _, item := range sale.Items {
			agg := byProduct[item.ProductID]
			agg.name = item.ProductName
			agg.quantity = agg.quantity.Add(item.Quantity)
			agg.revenue = agg.revenue.Add(item.Total)
			byProduct[item.ProductID] = agg
		}
	}

	rows := make([]domain.TopProductRow, 0, len(byProduct))
	for productID, agg := range byProduct {
		rows = append(rows, domain.TopProductRow{
			ProductID: productID,
			Name:      agg.name,
			Quantity:  agg.quantity,
			Revenue:   agg.revenue,
		})
	}
	slices.SortFunc(rows, func(a, b domain.TopProductRow) int {
		return b.Quantity.Cmp(a.Quantity)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *Store) GetSalesByDay(_ context.Context, from time.Time, to time.Time) ([]domain.SalesByDayRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDay := make(map[string]domain.SalesByDayRow)
	for _, sale := range s.salesByID {
		if sale.Status != domain.SaleStatusCompleted || sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		day := sale.CreatedAt.UTC().Format("2006-01-02")
		row := byDay[day]
		row.Day = day
		row.Transactions++
		row.Total = row.Total.Add(sale.Total)
		byDay[day] = row
	}

	rows := make([]domain.SalesByDayRow, 0, len(byDay))
	for _, row := range byDay {
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b domain.SalesByDayRow) int {
		return strings.Compare(a.Day, b.Day)
	})
	return rows, nil
}

func (s *Store) GetInventoryValue(_ context.Context) (domain.InventoryValueReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var report domain.InventoryValueReport
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		report.Products++
		report.StockValue = report.StockValue.Add(p.Stock.Mul(p.Cost))
		report.RetailValue = report.RetailValue.Add(p.Stock.Mul(p.Price))
		switch {
		case p.Stock.Sign() <= 0:
			report.OutOfStock++
		case p.Stock.Cmp(p.MinStock) <= 0:
			report.LowStockCount++
		}
	}
	return report, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalidSale
	}
	if user.ID == "" {
		user.ID = identity.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
