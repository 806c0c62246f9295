package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"puntoventa/backend/internal/domain"
	"puntoventa/backend/internal/identity"
	"puntoventa/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.sku, COALESCE(p.barcode, ''), p.name, COALESCE(p.description, ''),
			COALESCE(p.category_id, ''), COALESCE(c.name, ''), p.price, p.cost, p.stock,
			p.min_stock, p.unit, p.tax_rate, p.active, p.created_at, p.updated_at
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.active = true
		ORDER BY p.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (s *Store) ListLowStockProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.sku, COALESCE(p.barcode, ''), p.name, COALESCE(p.description, ''),
			COALESCE(p.category_id, ''), COALESCE(c.name, ''), p.price, p.cost, p.stock,
			p.min_stock, p.unit, p.tax_rate, p.active, p.created_at, p.updated_at
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.active = true AND p.stock <= p.min_stock
		ORDER BY p.stock ASC, p.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanProducts(rows)
}

func scanProducts(rows *sql.Rows) ([]domain.Product, error) {
	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Barcode, &p.Name, &p.Description,
			&p.CategoryID, &p.Category, &p.Price, &p.Cost, &p.Stock,
			&p.MinStock, &p.Unit, &p.TaxRate, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		p.UpdatedAt = p.UpdatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.SKU == "" || product.Name == "" || product.Price.Sign() <= 0 {
		return nil, store.ErrInvalidSale
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (
			id, sku, barcode, name, description, category_id, price, cost,
			stock, min_stock, unit, tax_rate, active, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, product.ID, product.SKU, nullIfEmpty(product.Barcode), product.Name,
		nullIfEmpty(product.Description), nullIfEmpty(product.CategoryID), product.Price,
		product.Cost, product.Stock, product.MinStock, product.Unit, product.TaxRate,
		product.Active, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidSale
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.sku, COALESCE(p.barcode, ''), p.name, COALESCE(p.description, ''),
			COALESCE(p.category_id, ''), COALESCE(c.name, ''), p.price, p.cost, p.stock,
			p.min_stock, p.unit, p.tax_rate, p.active, p.created_at, p.updated_at
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`, id).Scan(&p.ID, &p.SKU, &p.Barcode, &p.Name, &p.Description,
		&p.CategoryID, &p.Category, &p.Price, &p.Cost, &p.Stock,
		&p.MinStock, &p.Unit, &p.TaxRate, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Price.Sign() <= 0 {
		return nil, store.ErrInvalidSale
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, barcode = $3, description = $4, category_id = $5, price = $6,
			cost = $7, min_stock = $8, unit = $9, tax_rate = $10, active = $11, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, nullIfEmpty(product.Barcode), nullIfEmpty(product.Description),
		nullIfEmpty(product.CategoryID), product.Price, product.Cost, product.MinStock,
		product.Unit, product.TaxRate, product.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetProductByID(ctx, product.ID)
}

func (s *Store) DeactivateProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET active = false, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(description, ''), COALESCE(color, ''), COALESCE(icon, ''), active, created_at
		FROM categories
		WHERE active = true
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 32)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.Icon, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if category.Name == "" {
		return nil, store.ErrInvalidSale
	}
	if category.ID == "" {
		category.ID = identity.New()
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}
	category.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, description, color, icon, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, category.ID, category.Name, nullIfEmpty(category.Description),
		nullIfEmpty(category.Color), nullIfEmpty(category.Icon), category.Active, category.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidSale
		}
		return nil, err
	}

	created := category
	return &created, nil
}

func (s *Store) ListCustomers(ctx context.Context, search string, limit int) ([]domain.Customer, error) {
	if limit < 1 {
		limit = 100
	}
	pattern := "%" + strings.TrimSpace(search) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''),
			loyalty_points, active, created_at, updated_at
		FROM customers
		WHERE active = true AND (name ILIKE $1 OR email ILIKE $1 OR phone ILIKE $1)
		ORDER BY name
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, limit)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address,
			&c.LoyaltyPoints, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		c.UpdatedAt = c.UpdatedAt.UTC()
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''),
			loyalty_points, active, created_at, updated_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address,
		&c.LoyaltyPoints, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrInvalidSale
	}
	if customer.ID == "" {
		customer.ID = identity.New()
	}
	now := time.Now().UTC()
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = now
	}
	customer.UpdatedAt = now
	customer.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, email, phone, address, loyalty_points, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, customer.ID, customer.Name, nullIfEmpty(customer.Email), nullIfEmpty(customer.Phone),
		nullIfEmpty(customer.Address), customer.LoyaltyPoints, customer.Active,
		customer.CreatedAt, customer.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidSale
		}
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.ID == "" || customer.Name == "" {
		return nil, store.ErrInvalidSale
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET name = $2, email = $3, phone = $4, address = $5, active = $6, updated_at = now()
		WHERE id = $1
	`, customer.ID, customer.Name, nullIfEmpty(customer.Email), nullIfEmpty(customer.Phone),
		nullIfEmpty(customer.Address), customer.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetCustomerByID(ctx, customer.ID)
}

func (s *Store) DeactivateCustomer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE customers SET active = false, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListCustomerSales(ctx context.Context, customerID string, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_number, user_id, COALESCE(customer_id, ''), COALESCE(shift_id, ''),
			subtotal, tax_amount, discount_amount, total, status, payment_status,
			payment_method, created_at
		FROM sales
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSales(rows)
}

func (s *Store) AddLoyaltyPoints(ctx context.Context, customerID string, points decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE customers SET loyalty_points = loyalty_points + $2, updated_at = now() WHERE id = $1
	`, customerID, points)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CommitSale(ctx context.Context, sale domain.Sale, payment domain.Payment) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidSale
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	productIDs := uniqueProductIDs(sale.Items)
	if len(productIDs) == 0 {
		return nil, store.ErrInvalidSale
	}

	stockRows, err := pgTx.QueryContext(ctx, `
		SELECT id, name, stock
		FROM products
		WHERE active = true AND id = ANY($1)
		FOR UPDATE
	`, productIDs)
	if err != nil {
		return nil, err
	}
	type productState struct {
		name  string
		stock decimal.Decimal
	}
	stockMap := make(map[string]productState, len(productIDs))
	for stockRows.Next() {
		var id, name string
		var stock decimal.Decimal
		if err := stockRows.Scan(&id, &name, &stock); err != nil {
			_ = stockRows.Close()
			return nil, err
		}
		stockMap[id] = productState{name: name, stock: stock}
	}
	if err := stockRows.Err(); err != nil {
		_ = stockRows.Close()
		return nil, err
	}
	_ = stockRows.Close()

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

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO sales (
			id, sale_number, user_id, customer_id, shift_id, subtotal, tax_amount,
			discount_amount, total, status, payment_status, payment_method, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, sale.ID, sale.SaleNumber, sale.UserID, nullIfEmpty(sale.CustomerID),
		nullIfEmpty(sale.ShiftID), sale.Subtotal, sale.TaxAmount, sale.DiscountAmount,
		sale.Total, sale.Status, sale.PaymentStatus, sale.PaymentMethod, sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidSale
		}
		return nil, err
	}

	for i := range sale.Items {
		item := &sale.Items[i]
		if item.Quantity.Sign() <= 0 {
			return nil, store.ErrInvalidSale
		}

		state, exists := stockMap[item.ProductID]
		if !exists {
			return nil, store.ErrNotFound
		}
		if state.stock.Cmp(item.Quantity) < 0 {
			return nil, store.ErrInsufficientStock
		}
		state.stock = state.stock.Sub(item.Quantity)
		stockMap[item.ProductID] = state
		item.ProductName = state.name

		if item.ID == "" {
			item.ID = identity.New()
		}
		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO sale_items (
				id, sale_id, product_id, quantity, unit_price, discount_amount,
				tax_rate, subtotal, total
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, item.ID, sale.ID, item.ProductID, item.Quantity, item.UnitPrice,
			item.DiscountAmount, item.TaxRate, item.Subtotal, item.Total)
		if err != nil {
			return nil, err
		}

		_, err = pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $1, updated_at = now()
			WHERE id = $2
		`, item.Quantity, item.ProductID)
		if err != nil {
			return nil, err
		}

		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO stock_movements (id, product_id, kind, quantity, reference_id, note, user_id, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, identity.New(), item.ProductID, domain.MovementKindSale, item.Quantity.Neg(),
			sale.ID, nullIfEmpty(""), sale.UserID, sale.CreatedAt)
		if err != nil {
			return nil, err
		}
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
	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO payments (id, sale_id, method, amount, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, payment.ID, payment.SaleID, payment.Method, payment.Amount, payment.Status, payment.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	saved := sale
	return &saved, nil
}

func (s *Store) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_number, user_id, COALESCE(customer_id, ''), COALESCE(shift_id, ''),
			subtotal, tax_amount, discount_amount, total, status, payment_status,
			payment_method, created_at
		FROM sales
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSales(rows)
}

func scanSales(rows *sql.Rows) ([]domain.Sale, error) {
	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.SaleNumber, &sale.UserID, &sale.CustomerID,
			&sale.ShiftID, &sale.Subtotal, &sale.TaxAmount, &sale.DiscountAmount,
			&sale.Total, &sale.Status, &sale.PaymentStatus, &sale.PaymentMethod,
			&sale.CreatedAt); err != nil {
			return nil, err
		}
		sale.CreatedAt = sale.CreatedAt.UTC()
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	var sale domain.Sale
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sale_number, user_id, COALESCE(customer_id, ''), COALESCE(shift_id, ''),
			subtotal, tax_amount, discount_amount, total, status, payment_status,
			payment_method, created_at
		FROM sales
		WHERE id = $1
	`, id).Scan(&sale.ID, &sale.SaleNumber, &sale.UserID, &sale.CustomerID,
		&sale.ShiftID, &sale.Subtotal, &sale.TaxAmount, &sale.DiscountAmount,
		&sale.Total, &sale.Status, &sale.PaymentStatus, &sale.PaymentMethod, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale.CreatedAt = sale.CreatedAt.UTC()

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.product_id, COALESCE(p.name, ''), i.quantity, i.unit_price,
			i.discount_amount, i.tax_rate, i.subtotal, i.total
		FROM sale_items i
		LEFT JOIN products p ON p.id = i.product_id
		WHERE i.sale_id = $1
		ORDER BY i.id
	`, id)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item domain.SaleLineItem
		if err := itemRows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity,
			&item.UnitPrice, &item.DiscountAmount, &item.TaxRate, &item.Subtotal, &item.Total); err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	return &sale, nil
}

func (s *Store) ApplyStockMovement(ctx context.Context, movement domain.StockMovement) (*domain.StockMovement, error) {
	if movement.ProductID == "" || movement.Quantity.Sign() == 0 {
		return nil, store.ErrInvalidSale
	}
	if movement.ID == "" {
		movement.ID = identity.New()
	}
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var name string
	var active bool
	err = pgTx.QueryRowContext(ctx, `
		SELECT name, active FROM products WHERE id = $1 FOR UPDATE
	`, movement.ProductID).Scan(&name, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if !active {
		return nil, store.ErrNotFound
	}
	movement.ProductName = name

	_, err = pgTx.ExecContext(ctx, `
		UPDATE products SET stock = stock + $1, updated_at = now() WHERE id = $2
	`, movement.Quantity, movement.ProductID)
	if err != nil {
		return nil, err
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO stock_movements (id, product_id, kind, quantity, reference_id, note, user_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, movement.ID, movement.ProductID, movement.Kind, movement.Quantity,
		nullIfEmpty(movement.ReferenceID), nullIfEmpty(movement.Note), movement.UserID, movement.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	saved := movement
	return &saved, nil
}

func (s *Store) ListStockMovements(ctx context.Context, limit int) ([]domain.StockMovement, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.product_id, COALESCE(p.name, ''), m.kind, m.quantity,
			COALESCE(m.reference_id, ''), COALESCE(m.note, ''), m.user_id, m.created_at
		FROM stock_movements m
		LEFT JOIN products p ON p.id = m.product_id
		ORDER BY m.created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]domain.StockMovement, 0, limit)
	for rows.Next() {
		var m domain.StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.ProductName, &m.Kind, &m.Quantity,
			&m.ReferenceID, &m.Note, &m.UserID, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movements, nil
}

func (s *Store) ListRegisters(ctx context.Context) ([]domain.CashRegister, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(location, ''), active
		FROM cash_registers
		WHERE active = true
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	registers := make([]domain.CashRegister, 0, 8)
	for rows.Next() {
		var r domain.CashRegister
		if err := rows.Scan(&r.ID, &r.Name, &r.Location, &r.Active); err != nil {
			return nil, err
		}
		registers = append(registers, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return registers, nil
}

func (s *Store) GetRegisterByID(ctx context.Context, id string) (*domain.CashRegister, error) {
	var r domain.CashRegister
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(location, ''), active
		FROM cash_registers
		WHERE id = $1
	`, id).Scan(&r.ID, &r.Name, &r.Location, &r.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *Store) CreateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error) {
	if strings.TrimSpace(shift.UserID) == "" || strings.TrimSpace(shift.RegisterID) == "" {
		return nil, store.ErrInvalidSale
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

	// The partial unique index on (user_id) WHERE status='open' makes the
	// one-open-shift-per-user rule hold even under concurrent opens.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shifts (
			id, user_id, register_id, opening_balance, closing_balance,
			expected_balance, difference, notes, status, opened_at, closed_at
		)
		VALUES ($1,$2,$3,$4,NULL,NULL,NULL,$5,$6,$7,NULL)
	`, shift.ID, shift.UserID, shift.RegisterID, shift.OpeningBalance,
		nullIfEmpty(shift.Notes), shift.Status, shift.OpenedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrShiftAlreadyOpen
		}
		return nil, err
	}

	saved := shift
	return &saved, nil
}

func (s *Store) CloseShift(ctx context.Context, shiftID string, closingBalance decimal.Decimal, notes string, closedAt time.Time) (*domain.Shift, error) {
	if strings.TrimSpace(shiftID) == "" {
		return nil, store.ErrInvalidSale
	}
	if closedAt.IsZero() {
		closedAt = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var status string
	var openingBalance decimal.Decimal
	err = pgTx.QueryRowContext(ctx, `
		SELECT status, opening_balance FROM shifts WHERE id = $1 FOR UPDATE
	`, shiftID).Scan(&status, &openingBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if status != domain.ShiftStatusOpen {
		return nil, store.ErrShiftClosed
	}

	// Expected drawer balance counts cash only: card and other tenders never
	// pass through the drawer.
	var cashTotal decimal.Decimal
	err = pgTx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(p.amount), 0)
		FROM payments p
		JOIN sales s ON s.id = p.sale_id
		WHERE s.shift_id = $1 AND s.status = 'completed' AND p.method = 'cash' AND p.status = 'completed'
	`, shiftID).Scan(&cashTotal)
	if err != nil {
		return nil, err
	}

	expected := openingBalance.Add(cashTotal)
	difference := closingBalance.Sub(expected)

	shift, err := scanShiftRow(pgTx.QueryRowContext(ctx, `
		UPDATE shifts
		SET status = 'closed', closing_balance = $2, expected_balance = $3,
			difference = $4, notes = $5, closed_at = $6
		WHERE id = $1
		RETURNING id, user_id, register_id, opening_balance, closing_balance,
			expected_balance, difference, COALESCE(notes, ''), status, opened_at, closed_at
	`, shiftID, closingBalance, expected, difference, nullIfEmpty(notes), closedAt))
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return shift, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShiftRow(row rowScanner) (*domain.Shift, error) {
	var shift domain.Shift
	var closing, expected, difference decimal.NullDecimal
	var closedAt sql.NullTime
	err := row.Scan(&shift.ID, &shift.UserID, &shift.RegisterID, &shift.OpeningBalance,
		&closing, &expected, &difference, &shift.Notes, &shift.Status, &shift.OpenedAt, &closedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	shift.OpenedAt = shift.OpenedAt.UTC()
	if closing.Valid {
		v := closing.Decimal
		shift.ClosingBalance = &v
	}
	if expected.Valid {
		v := expected.Decimal
		shift.ExpectedBalance = &v
	}
	if difference.Valid {
		v := difference.Decimal
		shift.Difference = &v
	}
	if closedAt.Valid {
		at := closedAt.Time.UTC()
		shift.ClosedAt = &at
	}
	return &shift, nil
}

func (s *Store) GetShiftByID(ctx context.Context, id string) (*domain.Shift, error) {
	return scanShiftRow(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, register_id, opening_balance, closing_balance,
			expected_balance, difference, COALESCE(notes, ''), status, opened_at, closed_at
		FROM shifts
		WHERE id = $1
	`, id))
}

func (s *Store) GetOpenShiftByUser(ctx context.Context, userID string) (*domain.Shift, error) {
	return scanShiftRow(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, register_id, opening_balance, closing_balance,
			expected_balance, difference, COALESCE(notes, ''), status, opened_at, closed_at
		FROM shifts
		WHERE user_id = $1 AND status = 'open'
		LIMIT 1
	`, userID))
}

func (s *Store) ListShifts(ctx context.Context, limit int) ([]domain.Shift, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, register_id, opening_balance, closing_balance,
			expected_balance, difference, COALESCE(notes, ''), status, opened_at, closed_at
		FROM shifts
		ORDER BY opened_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shifts := make([]domain.Shift, 0, limit)
	for rows.Next() {
		shift, err := scanShiftRow(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, *shift)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shifts, nil
}

func (s *Store) GetShiftSummary(ctx context.Context, shiftID string) (domain.ShiftSummary, error) {
	summary := domain.ShiftSummary{ShiftID: shiftID}

	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total), 0), COUNT(*)
		FROM sales
		WHERE shift_id = $1 AND status = 'completed'
	`, shiftID).Scan(&summary.TotalSales, &summary.TotalTransactions)
	if err != nil {
		return domain.ShiftSummary{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.method, COALESCE(SUM(p.amount), 0)
		FROM payments p
		JOIN sales s ON s.id = p.sale_id
		WHERE s.shift_id = $1 AND s.status = 'completed' AND p.status = 'completed'
		GROUP BY p.method
	`, shiftID)
	if err != nil {
		return domain.ShiftSummary{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var method string
		var amount decimal.Decimal
		if err := rows.Scan(&method, &amount); err != nil {
			return domain.ShiftSummary{}, err
		}
		switch method {
		case domain.PaymentMethodCash:
			summary.CashSales = summary.CashSales.Add(amount)
		case domain.PaymentMethodCard, domain.PaymentMethodDebit, domain.PaymentMethodCredit:
			summary.CardSales = summary.CardSales.Add(amount)
		default:
			summary.OtherSales = summary.OtherSales.Add(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.ShiftSummary{}, err
	}

	return summary, nil
}

func (s *Store) GetSalesSummary(ctx context.Context, from time.Time, to time.Time) (domain.SalesSummaryReport, error) {
	report := domain.SalesSummaryReport{
		From: from.UTC().Format("2006-01-02"),
		To:   to.UTC().Format("2006-01-02"),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total), 0), COUNT(*)
		FROM sales
		WHERE status = 'completed' AND created_at >= $1 AND created_at < $2
	`, from, to).Scan(&report.TotalSales, &report.Transactions)
	if err != nil {
		return domain.SalesSummaryReport{}, err
	}
	if report.Transactions > 0 {
		report.AverageTicket = report.TotalSales.Div(decimal.NewFromInt(report.Transactions)).Round(2)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.method, COALESCE(SUM(p.amount), 0)
		FROM payments p
		JOIN sales s ON s.id = p.sale_id
		WHERE s.status = 'completed' AND p.status = 'completed'
			AND s.created_at >= $1 AND s.created_at < $2
		GROUP BY p.method
	`, from, to)
	if err != nil {
		return domain.SalesSummaryReport{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var method string
		var amount decimal.Decimal
		if err := rows.Scan(&method, &amount); err != nil {
			return domain.SalesSummaryReport{}, err
		}
		switch method {
		case domain.PaymentMethodCash:
			report.CashSales = report.CashSales.Add(amount)
		case domain.PaymentMethodCard, domain.PaymentMethodDebit, domain.PaymentMethodCredit:
			report.CardSales = report.CardSales.Add(amount)
		default:
			report.OtherSales = report.OtherSales.Add(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.SalesSummaryReport{}, err
	}

	return report, nil
}

func (s *Store) GetTopProducts(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.TopProductRow, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.product_id, COALESCE(p.name, ''), COALESCE(SUM(i.quantity), 0), COALESCE(SUM(i.total), 0)
		FROM sale_items i
		JOIN sales s ON s.id = i.sale_id
		LEFT JOIN products p ON p.id = i.product_id
		WHERE s.status = 'completed' AND s.created_at >= $1 AND s.created_at < $2
		GROUP BY i.product_id, p.name
		ORDER BY SUM(i.quantity) DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.TopProductRow, 0, limit)
	for rows.Next() {
		var row domain.TopProductRow
		if err := rows.Scan(&row.ProductID, &row.Name, &row.Quantity, &row.Revenue); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) GetSalesByDay(ctx context.Context, from time.Time, to time.Time) ([]domain.SalesByDayRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
			COUNT(*), COALESCE(SUM(total), 0)
		FROM sales
		WHERE status = 'completed' AND created_at >= $1 AND created_at < $2
		GROUP BY day
		ORDER BY day
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.SalesByDayRow, 0, 31)
	for rows.Next() {
		var row domain.SalesByDayRow
		if err := rows.Scan(&row.Day, &row.Transactions, &row.Total); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) GetInventoryValue(ctx context.Context) (domain.InventoryValueReport, error) {
	var report domain.InventoryValueReport
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(stock * cost), 0),
			COALESCE(SUM(stock * price), 0),
			COUNT(*) FILTER (WHERE stock <= min_stock AND stock > 0),
			COUNT(*) FILTER (WHERE stock <= 0)
		FROM products
		WHERE active = true
	`).Scan(&report.Products, &report.StockValue, &report.RetailValue,
		&report.LowStockCount, &report.OutOfStock)
	if err != nil {
		return domain.InventoryValueReport{}, err
	}
	return report, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.ID == "" {
		user.ID = identity.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password, role, full_name, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, user.ID, user.Username, user.Password, user.Role, nullIfEmpty(user.FullName),
		user.Active, user.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrInvalidSale
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password, role, COALESCE(full_name, ''), active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.ID, &u.Username, &u.Password, &u.Role, &u.FullName, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.CreatedAt = u.CreatedAt.UTC()
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func uniqueProductIDs(items []domain.SaleLineItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.ProductID)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
