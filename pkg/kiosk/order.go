package kiosk

import "time"

// Status is an order's place in its lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Order is a request for Quantity units of one drink.
type Order struct {
	ID          int64
	DrinkKey    string
	Customer    string
	Quantity    int
	Price       float64
	Status      Status
	Error       string
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// Total returns the order's price.
func (o Order) Total() float64 {
	return o.Price * float64(o.Quantity)
}

// Duration returns how long the order took to make, or zero if unfinished.
func (o Order) Duration() time.Duration {
	if o.StartedAt.IsZero() || o.CompletedAt.IsZero() {
		return 0
	}
	return o.CompletedAt.Sub(o.StartedAt)
}

// Journal records orders and their status changes.
type Journal interface {
	CreateOrder(o Order) (int64, error)
	UpdateStatus(id int64, status Status, message string, at time.Time) error
}
