package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pedidosbot/pedidos-agent/internal/domain"

	_ "modernc.org/sqlite"
)

// OrderStore persists orders and customer aggregates in SQLite. A single
// connection serializes writers, which makes the read-increment-persist
// sequence for order ids a real serialization point.
type OrderStore struct {
	db *sql.DB
}

func Open(path string) (*OrderStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &OrderStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *OrderStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS order_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		last_value INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO order_sequence (id, last_value) VALUES (1, 0);

	CREATE TABLE IF NOT EXISTS orders (
		seq INTEGER PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		customer_id TEXT NOT NULL,
		customer_name TEXT,
		created_at TEXT NOT NULL,
		lines JSON NOT NULL,
		subtotal REAL NOT NULL,
		discount_amount REAL NOT NULL DEFAULT 0,
		discount_percent REAL NOT NULL DEFAULT 0,
		discount_label TEXT,
		delivery_fee REAL NOT NULL DEFAULT 0,
		total REAL NOT NULL,
		delivery_mode TEXT NOT NULL,
		fulfillment_status TEXT NOT NULL,
		payment_status TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS customers (
		customer_id TEXT PRIMARY KEY,
		name TEXT,
		order_count INTEGER NOT NULL DEFAULT 0,
		total_spent REAL NOT NULL DEFAULT 0,
		last_order_at TEXT
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	if err != nil {
		return fmt.Errorf("migrate order store: %w", err)
	}
	return nil
}

func (s *OrderStore) Close() error {
	return s.db.Close()
}

// CreateOrder assigns the next sequential code, persists the order and
// updates the customer aggregates inside one transaction.
func (s *OrderStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`UPDATE order_sequence SET last_value = last_value + 1 WHERE id = 1 RETURNING last_value`,
	).Scan(&seq); err != nil {
		return fmt.Errorf("advance order sequence: %w", err)
	}
	order.ID = fmt.Sprintf("PED-%04d", seq)

	linesJSON, err := json.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("encode order lines: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO orders (
		seq, code, customer_id, customer_name, created_at, lines,
		subtotal, discount_amount, discount_percent, discount_label,
		delivery_fee, total, delivery_mode, fulfillment_status, payment_status
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seq, order.ID, string(order.CustomerID), order.CustomerName,
		order.CreatedAt.UTC().Format(time.RFC3339Nano), string(linesJSON),
		order.Subtotal, order.DiscountAmount, order.DiscountPercent, order.DiscountLabel,
		order.DeliveryFee, order.Total, string(order.DeliveryMode),
		string(order.Fulfillment), string(order.Payment),
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO customers (customer_id, name, order_count, total_spent, last_order_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(customer_id) DO UPDATE SET
			name = excluded.name,
			order_count = order_count + 1,
			total_spent = total_spent + excluded.total_spent,
			last_order_at = excluded.last_order_at`,
		string(order.CustomerID), order.CustomerName, order.Total,
		order.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("update customer aggregates: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order tx: %w", err)
	}
	return nil
}

func (s *OrderStore) GetCustomerStats(ctx context.Context, id domain.CustomerID) (*domain.CustomerStats, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, order_count, total_spent, last_order_at FROM customers WHERE customer_id = ?`,
		string(id))

	var (
		stats       domain.CustomerStats
		lastOrderAt sql.NullString
	)
	stats.CustomerID = id
	if err := row.Scan(&stats.Name, &stats.OrderCount, &stats.TotalSpent, &lastOrderAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("query customer stats: %w", err)
	}
	if lastOrderAt.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, lastOrderAt.String); err == nil {
			stats.LastOrderAt = ts
		}
	}
	return &stats, nil
}

func (s *OrderStore) ListOrders(ctx context.Context, limit int) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT
		code, customer_id, customer_name, created_at, lines,
		subtotal, discount_amount, discount_percent, discount_label,
		delivery_fee, total, delivery_mode, fulfillment_status, payment_status
		FROM orders ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

func scanOrderRow(rows *sql.Rows) (*domain.Order, error) {
	var (
		o          domain.Order
		customerID string
		createdAt  string
		linesJSON  string
		mode       string
		fulfill    string
		payment    string
	)
	err := rows.Scan(
		&o.ID, &customerID, &o.CustomerName, &createdAt, &linesJSON,
		&o.Subtotal, &o.DiscountAmount, &o.DiscountPercent, &o.DiscountLabel,
		&o.DeliveryFee, &o.Total, &mode, &fulfill, &payment,
	)
	if err != nil {
		return nil, fmt.Errorf("scan order row: %w", err)
	}
	o.CustomerID = domain.CustomerID(customerID)
	o.DeliveryMode = domain.DeliveryMode(mode)
	o.Fulfillment = domain.FulfillmentStatus(fulfill)
	o.Payment = domain.PaymentStatus(payment)
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		o.CreatedAt = ts
	}
	if err := json.Unmarshal([]byte(linesJSON), &o.Lines); err != nil {
		return nil, fmt.Errorf("decode order lines: %w", err)
	}
	return &o, nil
}
