package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"puntoventa/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidSale       = errors.New("invalid sale")
	ErrTotalsMismatch    = errors.New("declared totals do not match recomputed totals")
	ErrShiftAlreadyOpen  = errors.New("user already has an open shift")
	ErrShiftClosed       = errors.New("shift is not open")
)

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListLowStockProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeactivateProduct(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)

	ListCustomers(ctx context.Context, search string, limit int) ([]domain.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	DeactivateCustomer(ctx context.Context, id string) error
	ListCustomerSales(ctx context.Context, customerID string, limit int) ([]domain.Sale, error)
	AddLoyaltyPoints(ctx context.Context, customerID string, points decimal.Decimal) error

	// CommitSale persists the sale header, its line items, one negative stock
	// movement per line and the payment row in a single unit of work. Either
	// everything lands or nothing does.
	CommitSale(ctx context.Context, sale domain.Sale, payment domain.Payment) (*domain.Sale, error)
	ListSales(ctx context.Context, limit int) ([]domain.Sale, error)
	GetSaleByID(ctx context.Context, id string) (*domain.Sale, error)

	ApplyStockMovement(ctx context.Context, movement domain.StockMovement) (*domain.StockMovement, error)
	ListStockMovements(ctx context.Context, limit int) ([]domain.StockMovement, error)

	ListRegisters(ctx context.Context) ([]domain.CashRegister, error)
	GetRegisterByID(ctx context.Context, id string) (*domain.CashRegister, error)

	CreateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error)
	CloseShift(ctx context.Context, shiftID string, closingBalance decimal.Decimal, notes string, closedAt time.Time) (*domain.Shift, error)
	GetShiftByID(ctx context.Context, id string) (*domain.Shift, error)
	GetOpenShiftByUser(ctx context.Context, userID string) (*domain.Shift, error)
	ListShifts(ctx context.Context, limit int) ([]domain.Shift, error)
	GetShiftSummary(ctx context.Context, shiftID string) (domain.ShiftSummary, error)

	GetSalesSummary(ctx context.Context, from time.Time, to time.Time) (domain.SalesSummaryReport, error)
	GetTopProducts(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.TopProductRow, error)
	GetSalesByDay(ctx context.Context, from time.Time, to time.Time) ([]domain.SalesByDayRow, error)
	GetInventoryValue(ctx context.Context) (domain.InventoryValueReport, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
