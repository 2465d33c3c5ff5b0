// Package journal records kiosk orders in a SQLite database.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gwillem/zkbot/pkg/kiosk"
)

// ErrOrderNotFound is returned when an order ID has no row.
var ErrOrderNotFound = errors.New("order not found")

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	drink_key    TEXT    NOT NULL,
	customer     TEXT    NOT NULL DEFAULT 'Guest',
	quantity     INTEGER NOT NULL DEFAULT 1 CHECK (quantity > 0),
	price        REAL    NOT NULL DEFAULT 0,
	status       TEXT    NOT NULL DEFAULT 'pending',
	error        TEXT    NOT NULL DEFAULT '',
	created_at   TEXT    NOT NULL,
	started_at   TEXT,
	completed_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at);
`

// DB wraps the SQLite connection holding the orders table.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates the journal at path and ensures the schema exists.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create orders table: %w", err)
	}
	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// CreateOrder inserts o and returns its new ID.
func (db *DB) CreateOrder(o kiosk.Order) (int64, error) {
	created := o.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	status := o.Status
	if status == "" {
		status = kiosk.StatusPending
	}
	res, err := db.conn.Exec(`
		INSERT INTO orders (drink_key, customer, quantity, price, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, o.DrinkKey, o.Customer, o.Quantity, o.Price, string(status), formatTime(created))
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	return res.LastInsertId()
}

// UpdateStatus moves an order to status. Entering in_progress stamps
// started_at; any final status stamps completed_at. A non-empty message is
// kept as the order's error text.
func (db *DB) UpdateStatus(id int64, status kiosk.Status, message string, at time.Time) error {
	query := `UPDATE orders SET status = ?, error = ? WHERE id = ?`
	args := []any{string(status), message, id}
	switch status {
	case kiosk.StatusInProgress:
		query = `UPDATE orders SET status = ?, error = ?, started_at = ? WHERE id = ?`
		args = []any{string(status), message, formatTime(at), id}
	case kiosk.StatusCompleted, kiosk.StatusFailed, kiosk.StatusCancelled:
		query = `UPDATE orders SET status = ?, error = ?, completed_at = ? WHERE id = ?`
		args = []any{string(status), message, formatTime(at), id}
	}

	res, err := db.conn.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("update order %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update order %d: %w", id, ErrOrderNotFound)
	}
	return nil
}

const selectOrder = `
	SELECT id, drink_key, customer, quantity, price, status, error,
	       created_at, started_at, completed_at
	FROM orders`

// Order returns one order by ID.
func (db *DB) Order(id int64) (kiosk.Order, error) {
	row := db.conn.QueryRow(selectOrder+` WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return kiosk.Order{}, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
	}
	if err != nil {
		return kiosk.Order{}, fmt.Errorf("get order %d: %w", id, err)
	}
	return o, nil
}

// RecentOrders returns up to limit orders, newest first.
func (db *DB) RecentOrders(limit int) ([]kiosk.Order, error) {
	rows, err := db.conn.Query(selectOrder+` ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []kiosk.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Stats summarizes the journal.
type Stats struct {
	Orders  map[kiosk.Status]int
	Drinks  int     // units made by completed orders
	Revenue float64 // completed orders only
}

// Stats counts orders per status and totals completed sales.
func (db *DB) Stats() (Stats, error) {
	st := Stats{Orders: map[kiosk.Status]int{}}

	rows, err := db.conn.Query(`SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return st, fmt.Errorf("count orders: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return st, fmt.Errorf("scan count: %w", err)
		}
		st.Orders[kiosk.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	err = db.conn.QueryRow(`
		SELECT COALESCE(SUM(quantity), 0), COALESCE(SUM(quantity * price), 0)
		FROM orders WHERE status = ?
	`, string(kiosk.StatusCompleted)).Scan(&st.Drinks, &st.Revenue)
	if err != nil {
		return st, fmt.Errorf("sum sales: %w", err)
	}
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (kiosk.Order, error) {
	var (
		o                  kiosk.Order
		status, created    string
		started, completed sql.NullString
	)
	err := s.Scan(&o.ID, &o.DrinkKey, &o.Customer, &o.Quantity, &o.Price,
		&status, &o.Error, &created, &started, &completed)
	if err != nil {
		return o, err
	}
	o.Status = kiosk.Status(status)
	if o.CreatedAt, err = parseTime(created); err != nil {
		return o, err
	}
	if started.Valid {
		if o.StartedAt, err = parseTime(started.String); err != nil {
			return o, err
		}
	}
	if completed.Valid {
		if o.CompletedAt, err = parseTime(completed.String); err != nil {
			return o, err
		}
	}
	return o, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
