package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"puntoventa/backend/internal/cache"
	"puntoventa/backend/internal/domain"
	"puntoventa/backend/internal/identity"
	"puntoventa/backend/internal/money"
	"puntoventa/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo        store.Repository
	reportCache cache.ReportCache
	reportTTL   time.Duration
}

func New(repo store.Repository, reportCache cache.ReportCache, reportTTL time.Duration) *Service {
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	if reportTTL <= 0 {
		reportTTL = 60 * time.Second
	}

	return &Service{
		repo:        repo,
		reportCache: reportCache,
		reportTTL:   reportTTL,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) ListLowStockProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListLowStockProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	req.Unit = strings.ToLower(strings.TrimSpace(req.Unit))
	if req.Unit == "" {
		req.Unit = "unit"
	}

	if req.SKU == "" || req.Name == "" {
		return domain.Product{}, store.ErrInvalidSale
	}
	if req.Price.Sign() <= 0 || req.Cost.Sign() < 0 || req.InitialStock.Sign() < 0 {
		return domain.Product{}, store.ErrInvalidSale
	}
	if req.TaxRate.Sign() < 0 || req.TaxRate.Cmp(decimal.NewFromInt(1)) > 0 {
		return domain.Product{}, store.ErrInvalidSale
	}

	product := domain.Product{
		SKU:         req.SKU,
		Barcode:     strings.TrimSpace(req.Barcode),
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		CategoryID:  strings.TrimSpace(req.CategoryID),
		Price:       money.Round(req.Price),
		Cost:        money.Round(req.Cost),
		MinStock:    req.MinStock,
		Unit:        req.Unit,
		TaxRate:     req.TaxRate,
		Active:      true,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	if req.InitialStock.Sign() > 0 {
		movement := domain.StockMovement{
			ProductID: created.ID,
			Kind:      domain.MovementKindAdjustmentIn,
			Quantity:  req.InitialStock,
			Note:      "initial stock",
			UserID:    actor.UserID,
		}
		if _, err := s.repo.ApplyStockMovement(ctx, movement); err != nil {
			return domain.Product{}, err
		}
		created.Stock = created.Stock.Add(req.InitialStock)
	}

	log.Printf("[service] product created id=%s sku=%s by=%s", created.ID, created.SKU, actor.Username)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, store.ErrInvalidSale
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidSale
		}
		updated.Name = name
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.Barcode != nil {
		updated.Barcode = strings.TrimSpace(*req.Barcode)
	}
	if req.CategoryID != nil {
		updated.CategoryID = strings.TrimSpace(*req.CategoryID)
	}
	if req.Price != nil {
		if req.Price.Sign() <= 0 {
			return domain.Product{}, store.ErrInvalidSale
		}
		updated.Price = money.Round(*req.Price)
	}
	if req.Cost != nil {
		if req.Cost.Sign() < 0 {
			return domain.Product{}, store.ErrInvalidSale
		}
		updated.Cost = money.Round(*req.Cost)
	}
	if req.MinStock != nil {
		if req.MinStock.Sign() < 0 {
			return domain.Product{}, store.ErrInvalidSale
		}
		updated.MinStock = *req.MinStock
	}
	if req.Unit != nil {
		unit := strings.ToLower(strings.TrimSpace(*req.Unit))
		if unit == "" {
			return domain.Product{}, store.ErrInvalidSale
		}
		updated.Unit = unit
	}
	if req.TaxRate != nil {
		if req.TaxRate.Sign() < 0 || req.TaxRate.Cmp(decimal.NewFromInt(1)) > 0 {
			return domain.Product{}, store.ErrInvalidSale
		}
		updated.TaxRate = *req.TaxRate
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	log.Printf("[service] product updated id=%s by=%s", saved.ID, actor.Username)
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return store.ErrInvalidSale
	}
	if err := s.repo.DeactivateProduct(ctx, id); err != nil {
		return err
	}
	log.Printf("[service] product deactivated id=%s by=%s", id, actor.Username)
	return nil
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Category{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Category{}, store.ErrInvalidSale
	}

	created, err := s.repo.CreateCategory(ctx, domain.Category{
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Color:       strings.TrimSpace(req.Color),
		Icon:        strings.TrimSpace(req.Icon),
		Active:      true,
	})
	if err != nil {
		return domain.Category{}, err
	}
	return *created, nil
}

func (s *Service) ListCustomers(ctx context.Context, search string, limit int) ([]domain.Customer, error) {
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListCustomers(ctx, search, limit)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Customer{}, store.ErrInvalidSale
	}
	customer, err := s.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Customer{}, store.ErrInvalidSale
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		Name:    req.Name,
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
		Active:  true,
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return *created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Customer{}, store.ErrInvalidSale
	}

	existing, err := s.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Customer{}, store.ErrInvalidSale
		}
		updated.Name = name
	}
	if req.Email != nil {
		updated.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		updated.Address = strings.TrimSpace(*req.Address)
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateCustomer(ctx, updated)
	if err != nil {
		return domain.Customer{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return store.ErrInvalidSale
	}
	return s.repo.DeactivateCustomer(ctx, id)
}

func (s *Service) ListCustomerPurchases(ctx context.Context, customerID string, limit int) ([]domain.Sale, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, store.ErrInvalidSale
	}
	if _, err := s.repo.GetCustomerByID(ctx, customerID); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListCustomerSales(ctx, customerID, limit)
}

// saleNumberAttempts bounds retries when a generated receipt number collides
// with an existing one.
const saleNumberAttempts = 3

// CreateSale validates and recomputes the cart, then commits the sale
// header, line items, stock deltas and payment as one unit of work. The
// client-declared totals are advisory only: they are checked against the
// server-side recomputation and never stored as-is.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	actor, _ := ActorFromContext(ctx)
	if len(req.Items) == 0 {
		return domain.Sale{}, fmt.Errorf("%w: empty cart", store.ErrInvalidSale)
	}

	method, err := normalizePaymentMethod(req.PaymentMethod)
	if err != nil {
		return domain.Sale{}, err
	}
	if req.DiscountAmount.Sign() < 0 {
		return domain.Sale{}, fmt.Errorf("%w: negative discount", store.ErrInvalidSale)
	}

	shiftID := strings.TrimSpace(req.ShiftID)
	if shiftID != "" {
		shift, err := s.repo.GetShiftByID(ctx, shiftID)
		if err != nil {
			return domain.Sale{}, err
		}
		if shift.Status != domain.ShiftStatusOpen {
			return domain.Sale{}, store.ErrShiftClosed
		}
	}

	customerID := strings.TrimSpace(req.CustomerID)
	if customerID != "" {
		if _, err := s.repo.GetCustomerByID(ctx, customerID); err != nil {
			return domain.Sale{}, err
		}
	}

	items := make([]domain.SaleLineItem, 0, len(req.Items))
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, line := range req.Items {
		productID := strings.TrimSpace(line.ProductID)
		if productID == "" {
			return domain.Sale{}, fmt.Errorf("%w: missing product id", store.ErrInvalidSale)
		}
		if line.Quantity.Sign() <= 0 {
			return domain.Sale{}, fmt.Errorf("%w: quantity must be positive", store.ErrInvalidSale)
		}
		if line.DiscountAmount.Sign() < 0 {
			return domain.Sale{}, fmt.Errorf("%w: negative line discount", store.ErrInvalidSale)
		}

		product, err := s.repo.GetProductByID(ctx, productID)
		if err != nil {
			return domain.Sale{}, err
		}
		if !product.Active {
			return domain.Sale{}, store.ErrNotFound
		}

		lineSubtotal := money.LineSubtotal(line.Quantity, product.Price)
		lineTotal := money.LineTotal(line.Quantity, product.Price, line.DiscountAmount)
		if lineTotal.Sign() < 0 {
			return domain.Sale{}, fmt.Errorf("%w: line discount exceeds line amount", store.ErrInvalidSale)
		}

		items = append(items, domain.SaleLineItem{
			ProductID:      productID,
			ProductName:    product.Name,
			Quantity:       line.Quantity,
			UnitPrice:      product.Price,
			DiscountAmount: money.Round(line.DiscountAmount),
			TaxRate:        product.TaxRate,
			Subtotal:       money.Round(lineSubtotal),
			Total:          money.Round(lineTotal),
		})
		subtotal = subtotal.Add(lineSubtotal)
		tax = tax.Add(lineTotal.Mul(product.TaxRate))
	}

	subtotal = money.Round(subtotal)
	tax = money.Round(tax)
	total := money.Round(money.SaleTotal(subtotal, tax, req.DiscountAmount))
	if total.Sign() < 0 {
		return domain.Sale{}, fmt.Errorf("%w: discount exceeds sale amount", store.ErrInvalidSale)
	}

	if !money.WithinTolerance(req.Subtotal, subtotal) ||
		!money.WithinTolerance(req.TaxAmount, tax) ||
		!money.WithinTolerance(req.Total, total) {
		return domain.Sale{}, fmt.Errorf("%w: declared subtotal=%s tax=%s total=%s, computed subtotal=%s tax=%s total=%s",
			store.ErrTotalsMismatch, req.Subtotal, req.TaxAmount, req.Total, subtotal, tax, total)
	}

	now := time.Now().UTC()
	sale := domain.Sale{
		UserID:         actor.UserID,
		CustomerID:     customerID,
		ShiftID:        shiftID,
		Subtotal:       subtotal,
		TaxAmount:      tax,
		DiscountAmount: money.Round(req.DiscountAmount),
		Total:          total,
		Status:         domain.SaleStatusCompleted,
		PaymentStatus:  domain.PaymentStatusPaid,
		PaymentMethod:  method,
		CreatedAt:      now,
		Items:          items,
	}
	payment := domain.Payment{
		Method:    method,
		Amount:    total,
		Status:    "completed",
		CreatedAt: now,
	}

	var committed *domain.Sale
	for attempt := 0; attempt < saleNumberAttempts; attempt++ {
		sale.SaleNumber = identity.SaleNumber()
		committed, err = s.repo.CommitSale(ctx, sale, payment)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrInvalidSale) {
			return domain.Sale{}, err
		}
	}
	if err != nil {
		return domain.Sale{}, err
	}

	if customerID != "" {
		points := committed.Total.Floor()
		if err := s.repo.AddLoyaltyPoints(ctx, customerID, points); err != nil {
			log.Printf("[service] WARN: failed to award loyalty points customer=%s: %v", customerID, err)
		}
	}

	log.Printf("[service] sale committed number=%s total=%s items=%d by=%s",
		committed.SaleNumber, committed.Total, len(committed.Items), actor.Username)
	return *committed, nil
}

func (s *Service) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListSales(ctx, limit)
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Sale{}, store.ErrInvalidSale
	}
	sale, err := s.repo.GetSaleByID(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

// AdjustStock applies a manual in/out correction and records the movement.
// Unlike sale movements, corrections may drive stock negative so a miscount
// can always be written down as observed.
func (s *Service) AdjustStock(ctx context.Context, req domain.StockAdjustRequest) (domain.StockMovement, error) {
	actor, _ := ActorFromContext(ctx)

	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.ProductID == "" {
		return domain.StockMovement{}, store.ErrInvalidSale
	}
	if req.Quantity.Sign() <= 0 {
		return domain.StockMovement{}, fmt.Errorf("%w: quantity must be positive", store.ErrInvalidSale)
	}

	var kind string
	quantity := req.Quantity
	switch strings.ToLower(strings.TrimSpace(req.Direction)) {
	case "in":
		kind = domain.MovementKindAdjustmentIn
	case "out":
		kind = domain.MovementKindAdjustmentOut
		quantity = quantity.Neg()
	default:
		return domain.StockMovement{}, fmt.Errorf("%w: direction must be in or out", store.ErrInvalidSale)
	}

	movement, err := s.repo.ApplyStockMovement(ctx, domain.StockMovement{
		ProductID: req.ProductID,
		Kind:      kind,
		Quantity:  quantity,
		Note:      strings.TrimSpace(req.Note),
		UserID:    actor.UserID,
	})
	if err != nil {
		return domain.StockMovement{}, err
	}

	log.Printf("[service] stock adjusted product=%s kind=%s qty=%s by=%s",
		movement.ProductID, movement.Kind, movement.Quantity, actor.Username)
	return *movement, nil
}

func (s *Service) ListStockMovements(ctx context.Context, limit int) ([]domain.StockMovement, error) {
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListStockMovements(ctx, limit)
}

func (s *Service) ListRegisters(ctx context.Context) ([]domain.CashRegister, error) {
	return s.repo.ListRegisters(ctx)
}

func (s *Service) OpenShift(ctx context.Context, req domain.ShiftOpenRequest) (domain.ShiftResponse, error) {
	actor, _ := ActorFromContext(ctx)

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = actor.UserID
	}
	registerID := strings.TrimSpace(req.RegisterID)
	if userID == "" || registerID == "" {
		return domain.ShiftResponse{}, store.ErrInvalidSale
	}
	if req.OpeningBalance.Sign() < 0 {
		return domain.ShiftResponse{}, fmt.Errorf("%w: negative opening balance", store.ErrInvalidSale)
	}

	register, err := s.repo.GetRegisterByID(ctx, registerID)
	if err != nil {
		return domain.ShiftResponse{}, err
	}
	if !register.Active {
		return domain.ShiftResponse{}, store.ErrNotFound
	}

	shift, err := s.repo.CreateShift(ctx, domain.Shift{
		UserID:         userID,
		RegisterID:     registerID,
		OpeningBalance: money.Round(req.OpeningBalance),
		Status:         domain.ShiftStatusOpen,
		OpenedAt:       time.Now().UTC(),
	})
	if err != nil {
		return domain.ShiftResponse{}, err
	}

	log.Printf("[service] shift opened id=%s user=%s register=%s", shift.ID, shift.UserID, shift.RegisterID)
	return domain.ShiftResponse{Shift: *shift}, nil
}

func (s *Service) CloseShift(ctx context.Context, shiftID string, req domain.ShiftCloseRequest) (domain.ShiftResponse, error) {
	shiftID = strings.TrimSpace(shiftID)
	if shiftID == "" {
		return domain.ShiftResponse{}, store.ErrInvalidSale
	}
	if req.ClosingBalance.Sign() < 0 {
		return domain.ShiftResponse{}, fmt.Errorf("%w: negative closing balance", store.ErrInvalidSale)
	}

	shift, err := s.repo.CloseShift(ctx, shiftID, money.Round(req.ClosingBalance), strings.TrimSpace(req.Notes), time.Now().UTC())
	if err != nil {
		return domain.ShiftResponse{}, err
	}

	summary, err := s.repo.GetShiftSummary(ctx, shift.ID)
	if err != nil {
		log.Printf("[service] WARN: shift closed but summary failed shift=%s: %v", shift.ID, err)
		return domain.ShiftResponse{Shift: *shift}, nil
	}

	log.Printf("[service] shift closed id=%s expected=%s difference=%s",
		shift.ID, shift.ExpectedBalance, shift.Difference)
	return domain.ShiftResponse{Shift: *shift, Summary: &summary}, nil
}

// CurrentShift returns the user's open shift, or nil when there is none.
// Having no open shift is a normal state, not an error.
func (s *Service) CurrentShift(ctx context.Context, userID string) (*domain.Shift, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		actor, _ := ActorFromContext(ctx)
		userID = actor.UserID
	}
	if userID == "" {
		return nil, store.ErrInvalidSale
	}

	shift, err := s.repo.GetOpenShiftByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return shift, nil
}

func (s *Service) ListShifts(ctx context.Context, limit int) ([]domain.Shift, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListShifts(ctx, limit)
}

func (s *Service) ShiftSummary(ctx context.Context, shiftID string) (domain.ShiftSummary, error) {
	shiftID = strings.TrimSpace(shiftID)
	if shiftID == "" {
		return domain.ShiftSummary{}, store.ErrInvalidSale
	}
	if _, err := s.repo.GetShiftByID(ctx, shiftID); err != nil {
		return domain.ShiftSummary{}, err
	}
	return s.repo.GetShiftSummary(ctx, shiftID)
}

func (s *Service) SalesSummary(ctx context.Context, fromRaw string, toRaw string) (domain.SalesSummaryReport, error) {
	from, to, err := parseReportRange(fromRaw, toRaw)
	if err != nil {
		return domain.SalesSummaryReport{}, err
	}

	key := fmt.Sprintf("report:sales-summary:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var cached domain.SalesSummaryReport
	if hitCache(ctx, s.reportCache, key, &cached) {
		return cached, nil
	}

	report, err := s.repo.GetSalesSummary(ctx, from, to)
	if err != nil {
		return domain.SalesSummaryReport{}, err
	}
	s.storeCache(ctx, key, report)
	return report, nil
}

func (s *Service) TopProducts(ctx context.Context, fromRaw string, toRaw string, limit int) ([]domain.TopProductRow, error) {
	from, to, err := parseReportRange(fromRaw, toRaw)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 10
	}

	key := fmt.Sprintf("report:top-products:%s:%s:%d", from.Format("2006-01-02"), to.Format("2006-01-02"), limit)
	var cached []domain.TopProductRow
	if hitCache(ctx, s.reportCache, key, &cached) {
		return cached, nil
	}

	rows, err := s.repo.GetTopProducts(ctx, from, to, limit)
	if err != nil {
		return nil, err
	}
	s.storeCache(ctx, key, rows)
	return rows, nil
}

func (s *Service) SalesByDay(ctx context.Context, fromRaw string, toRaw string) ([]domain.SalesByDayRow, error) {
	from, to, err := parseReportRange(fromRaw, toRaw)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("report:sales-by-day:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var cached []domain.SalesByDayRow
	if hitCache(ctx, s.reportCache, key, &cached) {
		return cached, nil
	}

	rows, err := s.repo.GetSalesByDay(ctx, from, to)
	if err != nil {
		return nil, err
	}
	s.storeCache(ctx, key, rows)
	return rows, nil
}

func (s *Service) InventoryValue(ctx context.Context) (domain.InventoryValueReport, error) {
	const key = "report:inventory-value"
	var cached domain.InventoryValueReport
	if hitCache(ctx, s.reportCache, key, &cached) {
		return cached, nil
	}

	report, err := s.repo.GetInventoryValue(ctx)
	if err != nil {
		return domain.InventoryValueReport{}, err
	}
	s.storeCache(ctx, key, report)
	return report, nil
}

func hitCache(ctx context.Context, rc cache.ReportCache, key string, dest any) bool {
	payload, found, err := rc.Get(ctx, key)
	if err != nil {
		log.Printf("[service] WARN: report cache get %s: %v", key, err)
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		log.Printf("[service] WARN: report cache decode %s: %v", key, err)
		return false
	}
	return true
}

func (s *Service) storeCache(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.reportCache.Set(ctx, key, payload, s.reportTTL); err != nil {
		log.Printf("[service] WARN: report cache set %s: %v", key, err)
	}
}

// parseReportRange interprets from/to as inclusive calendar dates and returns
// a half-open [from, to+1d) UTC interval. Empty values default to the last
// 30 days.
func parseReportRange(fromRaw string, toRaw string) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30).Truncate(24 * time.Hour)
	to := now.Truncate(24 * time.Hour)

	if raw := strings.TrimSpace(fromRaw); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid from date", store.ErrInvalidSale)
		}
		from = parsed
	}
	if raw := strings.TrimSpace(toRaw); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid to date", store.ErrInvalidSale)
		}
		to = parsed
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to precedes from", store.ErrInvalidSale)
	}
	return from, to.AddDate(0, 0, 1), nil
}

func normalizePaymentMethod(raw string) (string, error) {
	method := strings.ToLower(strings.TrimSpace(raw))
	if method == "" {
		return domain.PaymentMethodCash, nil
	}
	switch method {
	case domain.PaymentMethodCash, domain.PaymentMethodCard, domain.PaymentMethodDebit,
		domain.PaymentMethodCredit, domain.PaymentMethodOther:
		return method, nil
	}
	return "", fmt.Errorf("%w: unknown payment method %q", store.ErrInvalidSale, raw)
}
