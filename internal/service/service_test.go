package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"puntoventa/backend/internal/domain"
	"puntoventa/backend/internal/store"
	"puntoventa/backend/internal/store/memory"
)

func newTestService() (*Service, *memory.Store) {
	repo := memory.NewSeeded()
	return New(repo, nil, 0), repo
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{
		UserID:   "user-admin",
		Username: "admin",
		Role:     "admin",
	})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{
		UserID:   "user-cashier",
		Username: "cashier",
		Role:     "cashier",
	})
}

func dec(t *testing.T, raw string) decimal.Decimal {
	t.Helper()
	value, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", raw, err)
	}
	return value
}

func line(productID string, qty string) domain.SaleCartItem {
	return domain.SaleCartItem{
		ProductID: productID,
		Quantity:  decimal.RequireFromString(qty),
	}
}

// zeroTaxCart builds a sale request over untaxed products, so the declared
// totals can be written down directly from the seed prices.
func zeroTaxCart(shiftID string, method string, subtotal string, discount string, items ...domain.SaleCartItem) domain.SaleCreateRequest {
	sub := decimal.RequireFromString(subtotal)
	disc := decimal.RequireFromString(discount)
	return domain.SaleCreateRequest{
		ShiftID:        shiftID,
		PaymentMethod:  method,
		Subtotal:       sub,
		TaxAmount:      decimal.Zero,
		DiscountAmount: disc,
		Total:          sub.Sub(disc),
		Items:          items,
	}
}

func TestCreateSaleRecomputesAndCommits(t *testing.T) {
	svc, repo := newTestService()
	ctx := cashierCtx()

	// Two milk at 1.80 plus one bread at 2.40.
	sale, err := svc.CreateSale(ctx, zeroTaxCart("", "cash", "6.00", "0",
		line("prod-milk", "2"), line("prod-bread", "1")))
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	if !strings.HasPrefix(sale.SaleNumber, "SALE-") {
		t.Fatalf("unexpected sale number %q", sale.SaleNumber)
	}
	if !sale.Total.Equal(dec(t, "6.00")) {
		t.Fatalf("expected total 6.00, got %s", sale.Total)
	}
	if len(sale.Items) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(sale.Items))
	}

	milk, err := repo.GetProductByID(ctx, "prod-milk")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if !milk.Stock.Equal(dec(t, "58")) {
		t.Fatalf("expected milk stock 58 after sale, got %s", milk.Stock)
	}

	movements, err := repo.ListStockMovements(ctx, 10)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("expected 2 sale movements, got %d", len(movements))
	}
	for _, movement := range movements {
		if movement.Kind != domain.MovementKindSale {
			t.Fatalf("expected sale movement, got %s", movement.Kind)
		}
		if movement.Quantity.Sign() >= 0 {
			t.Fatalf("expected negative movement quantity, got %s", movement.Quantity)
		}
		if movement.ReferenceID != sale.ID {
			t.Fatalf("expected movement reference %s, got %s", sale.ID, movement.ReferenceID)
		}
	}
}

func TestCreateSaleComputesTaxFromProduct(t *testing.T) {
	svc, _ := newTestService()

	// Coffee is 8.50 with a 16% tax rate: 2 units = 17.00 + 2.72 tax.
	req := domain.SaleCreateRequest{
		PaymentMethod: "cash",
		Subtotal:      decimal.RequireFromString("17.00"),
		TaxAmount:     decimal.RequireFromString("2.72"),
		Total:         decimal.RequireFromString("19.72"),
		Items:         []domain.SaleCartItem{line("prod-coffee", "2")},
	}
	sale, err := svc.CreateSale(cashierCtx(), req)
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if !sale.TaxAmount.Equal(dec(t, "2.72")) {
		t.Fatalf("expected tax 2.72, got %s", sale.TaxAmount)
	}
	if !sale.Total.Equal(dec(t, "19.72")) {
		t.Fatalf("expected total 19.72, got %s", sale.Total)
	}
}

func TestCreateSaleRejectsTotalsMismatch(t *testing.T) {
	svc, repo := newTestService()

	req := zeroTaxCart("", "cash", "6.00", "0", line("prod-milk", "2"))
	req.Total = dec(t, "3.70") // off by more than a cent from 3.60
	req.Subtotal = dec(t, "3.70")

	_, err := svc.CreateSale(cashierCtx(), req)
	if !errors.Is(err, store.ErrTotalsMismatch) {
		t.Fatalf("expected ErrTotalsMismatch, got %v", err)
	}

	milk, err := repo.GetProductByID(context.Background(), "prod-milk")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if !milk.Stock.Equal(dec(t, "60")) {
		t.Fatalf("expected milk stock untouched at 60, got %s", milk.Stock)
	}
}

func TestCreateSaleToleratesPennyRounding(t *testing.T) {
	svc, _ := newTestService()

	// Computed total is 3.60; a declared 3.61 is within the cent tolerance
	// and the stored sale keeps the server-computed amount.
	req := zeroTaxCart("", "cash", "3.61", "0", line("prod-milk", "2"))
	sale, err := svc.CreateSale(cashierCtx(), req)
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if !sale.Total.Equal(dec(t, "3.60")) {
		t.Fatalf("expected stored total 3.60, got %s", sale.Total)
	}
}

func TestCreateSaleRejectsEmptyCart(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{PaymentMethod: "cash"})
	if !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("expected ErrInvalidSale for empty cart, got %v", err)
	}
}

func TestCreateSaleInsufficientStock(t *testing.T) {
	svc, _ := newTestService()

	// Seeded soda stock is 5.
	req := zeroTaxCart("", "cash", "9.00", "0", line("prod-soda", "6"))
	req.TaxAmount = dec(t, "1.44")
	req.Total = dec(t, "10.44")

	_, err := svc.CreateSale(cashierCtx(), req)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestCreateSaleRollsBackWholeCart(t *testing.T) {
	svc, repo := newTestService()
	ctx := cashierCtx()

	// First line is fine, second exceeds soda stock. Nothing may persist.
	req := zeroTaxCart("", "cash", "16.80", "0",
		line("prod-milk", "1"), line("prod-soda", "10"))
	req.TaxAmount = dec(t, "2.40")
	req.Total = dec(t, "19.20")

	_, err := svc.CreateSale(ctx, req)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	milk, err := repo.GetProductByID(ctx, "prod-milk")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if !milk.Stock.Equal(dec(t, "60")) {
		t.Fatalf("expected milk stock untouched at 60, got %s", milk.Stock)
	}
	sales, err := repo.ListSales(ctx, 10)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("expected no sales persisted, got %d", len(sales))
	}
	movements, err := repo.ListStockMovements(ctx, 10)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 0 {
		t.Fatalf("expected no movements persisted, got %d", len(movements))
	}
}

func TestCreateSaleAwardsLoyaltyPoints(t *testing.T) {
	svc, repo := newTestService()

	req := zeroTaxCart("", "cash", "3.60", "0", line("prod-milk", "2"))
	req.CustomerID = "cust-regular"
	if _, err := svc.CreateSale(cashierCtx(), req); err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	customer, err := repo.GetCustomerByID(context.Background(), "cust-regular")
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if !customer.LoyaltyPoints.Equal(dec(t, "3")) {
		t.Fatalf("expected 3 loyalty points (floor of 3.60), got %s", customer.LoyaltyPoints)
	}
}

func TestOpenShiftTwiceFails(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	_, err := svc.OpenShift(ctx, domain.ShiftOpenRequest{
		RegisterID:     "reg-main",
		OpeningBalance: dec(t, "100.00"),
	})
	if err != nil {
		t.Fatalf("open shift failed: %v", err)
	}

	_, err = svc.OpenShift(ctx, domain.ShiftOpenRequest{
		RegisterID:     "reg-main",
		OpeningBalance: dec(t, "50.00"),
	})
	if !errors.Is(err, store.ErrShiftAlreadyOpen) {
		t.Fatalf("expected ErrShiftAlreadyOpen, got %v", err)
	}
}

func TestOpenShiftRejectsInactiveRegister(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.OpenShift(cashierCtx(), domain.ShiftOpenRequest{
		RegisterID:     "reg-closed",
		OpeningBalance: dec(t, "100.00"),
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for inactive register, got %v", err)
	}
}

func TestCloseShiftReconciliation(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	opened, err := svc.OpenShift(ctx, domain.ShiftOpenRequest{
		RegisterID:     "reg-main",
		OpeningBalance: dec(t, "100.00"),
	})
	if err != nil {
		t.Fatalf("open shift failed: %v", err)
	}
	shiftID := opened.Shift.ID

	// Cash sales of 100.00, 50.00 and 25.50, plus one card sale that must
	// not count toward the expected drawer balance.
	cashCarts := []domain.SaleCreateRequest{
		zeroTaxCart(shiftID, "cash", "100.00", "0", line("prod-milk", "20"), line("prod-rice", "20")),
		zeroTaxCart(shiftID, "cash", "50.00", "0", line("prod-rice", "10"), line("prod-milk", "10")),
		zeroTaxCart(shiftID, "cash", "26.40", "0.90", line("prod-bread", "11")),
	}
	for i, cart := range cashCarts {
		if _, err := svc.CreateSale(ctx, cart); err != nil {
			t.Fatalf("cash sale #%d failed: %v", i, err)
		}
	}
	if _, err := svc.CreateSale(ctx, zeroTaxCart(shiftID, "card", "3.60", "0", line("prod-milk", "2"))); err != nil {
		t.Fatalf("card sale failed: %v", err)
	}

	closed, err := svc.CloseShift(ctx, shiftID, domain.ShiftCloseRequest{
		ClosingBalance: dec(t, "175.00"),
		Notes:          "evening count",
	})
	if err != nil {
		t.Fatalf("close shift failed: %v", err)
	}

	shift := closed.Shift
	if shift.Status != domain.ShiftStatusClosed {
		t.Fatalf("expected closed status, got %s", shift.Status)
	}
	if shift.ExpectedBalance == nil || !shift.ExpectedBalance.Equal(dec(t, "175.50")) {
		t.Fatalf("expected balance 175.50, got %v", shift.ExpectedBalance)
	}
	if shift.Difference == nil || !shift.Difference.Equal(dec(t, "-0.50")) {
		t.Fatalf("expected difference -0.50, got %v", shift.Difference)
	}
	if shift.ClosedAt == nil {
		t.Fatalf("expected closed_at to be set")
	}

	if closed.Summary == nil {
		t.Fatalf("expected summary with close response")
	}
	if !closed.Summary.CashSales.Equal(dec(t, "175.50")) {
		t.Fatalf("expected cash sales 175.50, got %s", closed.Summary.CashSales)
	}
	if !closed.Summary.CardSales.Equal(dec(t, "3.60")) {
		t.Fatalf("expected card sales 3.60, got %s", closed.Summary.CardSales)
	}
	if closed.Summary.TotalTransactions != 4 {
		t.Fatalf("expected 4 transactions, got %d", closed.Summary.TotalTransactions)
	}
}

func TestCloseShiftTwiceFails(t *testing.T) {
	svc, repo := newTestService()
	ctx := cashierCtx()

	opened, err := svc.OpenShift(ctx, domain.ShiftOpenRequest{
		RegisterID:     "reg-main",
		OpeningBalance: dec(t, "80.00"),
	})
	if err != nil {
		t.Fatalf("open shift failed: %v", err)
	}

	first, err := svc.CloseShift(ctx, opened.Shift.ID, domain.ShiftCloseRequest{
		ClosingBalance: dec(t, "80.00"),
	})
	if err != nil {
		t.Fatalf("close shift failed: %v", err)
	}

	_, err = svc.CloseShift(ctx, opened.Shift.ID, domain.ShiftCloseRequest{
		ClosingBalance: dec(t, "999.00"),
	})
	if !errors.Is(err, store.ErrShiftClosed) {
		t.Fatalf("expected ErrShiftClosed, got %v", err)
	}

	// The rejected second close must not overwrite the recorded figures.
	persisted, err := repo.GetShiftByID(ctx, opened.Shift.ID)
	if err != nil {
		t.Fatalf("get shift: %v", err)
	}
	if !persisted.ClosingBalance.Equal(*first.Shift.ClosingBalance) {
		t.Fatalf("closing balance changed after rejected close: %s", persisted.ClosingBalance)
	}
}

func TestCloseShiftUnknownShift(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CloseShift(cashierCtx(), "no-such-shift", domain.ShiftCloseRequest{
		ClosingBalance: dec(t, "10.00"),
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateSaleRejectsClosedShift(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	opened, err := svc.OpenShift(ctx, domain.ShiftOpenRequest{
		RegisterID:     "reg-main",
		OpeningBalance: dec(t, "60.00"),
	})
	if err != nil {
		t.Fatalf("open shift failed: %v", err)
	}
	if _, err := svc.CloseShift(ctx, opened.Shift.ID, domain.ShiftCloseRequest{
		ClosingBalance: dec(t, "60.00"),
	}); err != nil {
		t.Fatalf("close shift failed: %v", err)
	}

	_, err = svc.CreateSale(ctx, zeroTaxCart(opened.Shift.ID, "cash", "3.60", "0", line("prod-milk", "2")))
	if !errors.Is(err, store.ErrShiftClosed) {
		t.Fatalf("expected ErrShiftClosed, got %v", err)
	}
}

func TestCurrentShiftNilWhenNoneOpen(t *testing.T) {
	svc, _ := newTestService()

	shift, err := svc.CurrentShift(cashierCtx(), "")
	if err != nil {
		t.Fatalf("current shift failed: %v", err)
	}
	if shift != nil {
		t.Fatalf("expected nil shift, got %+v", shift)
	}
}

func TestCurrentShiftReturnsOpenShift(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	opened, err := svc.OpenShift(ctx, domain.ShiftOpenRequest{
		RegisterID:     "reg-main",
		OpeningBalance: dec(t, "40.00"),
	})
	if err != nil {
		t.Fatalf("open shift failed: %v", err)
	}

	current, err := svc.CurrentShift(ctx, "user-cashier")
	if err != nil {
		t.Fatalf("current shift failed: %v", err)
	}
	if current == nil || current.ID != opened.Shift.ID {
		t.Fatalf("expected open shift %s, got %+v", opened.Shift.ID, current)
	}
}

func TestAdjustStockOutMayGoNegative(t *testing.T) {
	svc, repo := newTestService()
	ctx := adminCtx()

	// Writing down a miscount larger than recorded stock is allowed.
	movement, err := svc.AdjustStock(ctx, domain.StockAdjustRequest{
		ProductID: "prod-soda",
		Quantity:  dec(t, "8"),
		Direction: "out",
		Note:      "breakage during delivery",
	})
	if err != nil {
		t.Fatalf("adjust stock failed: %v", err)
	}
	if movement.Kind != domain.MovementKindAdjustmentOut {
		t.Fatalf("expected adjustment_out, got %s", movement.Kind)
	}
	if !movement.Quantity.Equal(dec(t, "-8")) {
		t.Fatalf("expected movement quantity -8, got %s", movement.Quantity)
	}

	soda, err := repo.GetProductByID(ctx, "prod-soda")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if !soda.Stock.Equal(dec(t, "-3")) {
		t.Fatalf("expected soda stock -3, got %s", soda.Stock)
	}
}

func TestAdjustStockRejectsUnknownDirection(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.AdjustStock(adminCtx(), domain.StockAdjustRequest{
		ProductID: "prod-soda",
		Quantity:  dec(t, "2"),
		Direction: "sideways",
	})
	if !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("expected ErrInvalidSale, got %v", err)
	}
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateProduct(cashierCtx(), domain.ProductCreateRequest{
		SKU:   "SKU-NEW-01",
		Name:  "Sparkling Water",
		Price: dec(t, "1.10"),
	})
	if err == nil {
		t.Fatalf("expected non-admin create product to fail")
	}
}

func TestCreateProductWithInitialStock(t *testing.T) {
	svc, repo := newTestService()
	ctx := adminCtx()

	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		SKU:          "sku-new-02",
		Name:         "Olive Oil 1L",
		CategoryID:   "cat-grocery",
		Price:        dec(t, "9.90"),
		Cost:         dec(t, "6.50"),
		MinStock:     dec(t, "4"),
		InitialStock: dec(t, "12"),
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	if product.SKU != "SKU-NEW-02" {
		t.Fatalf("expected normalized SKU, got %s", product.SKU)
	}
	if !product.Stock.Equal(dec(t, "12")) {
		t.Fatalf("expected stock 12, got %s", product.Stock)
	}

	movements, err := repo.ListStockMovements(ctx, 10)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 1 || movements[0].Kind != domain.MovementKindAdjustmentIn {
		t.Fatalf("expected one adjustment_in movement, got %+v", movements)
	}
}

func TestLowStockProducts(t *testing.T) {
	svc, _ := newTestService()

	products, err := svc.ListLowStockProducts(adminCtx())
	if err != nil {
		t.Fatalf("list low stock failed: %v", err)
	}

	found := false
	for _, p := range products {
		if p.ID == "prod-soda" {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected seeded soda (stock 5, min 24) to be low on stock")
	}
}

func TestSalesSummaryReport(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	if _, err := svc.CreateSale(ctx, zeroTaxCart("", "cash", "3.60", "0", line("prod-milk", "2"))); err != nil {
		t.Fatalf("cash sale failed: %v", err)
	}
	if _, err := svc.CreateSale(ctx, zeroTaxCart("", "card", "2.40", "0", line("prod-bread", "1"))); err != nil {
		t.Fatalf("card sale failed: %v", err)
	}

	report, err := svc.SalesSummary(ctx, "", "")
	if err != nil {
		t.Fatalf("sales summary failed: %v", err)
	}
	if report.Transactions != 2 {
		t.Fatalf("expected 2 transactions, got %d", report.Transactions)
	}
	if !report.TotalSales.Equal(dec(t, "6.00")) {
		t.Fatalf("expected total sales 6.00, got %s", report.TotalSales)
	}
	if !report.CashSales.Equal(dec(t, "3.60")) {
		t.Fatalf("expected cash sales 3.60, got %s", report.CashSales)
	}
	if !report.CardSales.Equal(dec(t, "2.40")) {
		t.Fatalf("expected card sales 2.40, got %s", report.CardSales)
	}
}

func TestReportRangeRejectsInvertedDates(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.SalesSummary(cashierCtx(), "2026-02-10", "2026-02-01")
	if err == nil {
		t.Fatalf("expected inverted date range to fail")
	}
}
