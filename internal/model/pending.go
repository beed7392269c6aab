package model

import "time"

// Pending duplicate statuses. Approved and declined are terminal.
const (
	PendingStatusPending  = "pending"
	PendingStatusApproved = "approved"
	PendingStatusDeclined = "declined"
)

// PendingDuplicate is a deposit submission that collided with an existing
// identical record and awaits admin adjudication.
type PendingDuplicate struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Item      string    `json:"item"`
	Qty       int       `json:"qty"`
	Value     float64   `json:"value"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"timestamp"`
}

// Terminal reports whether the entry has been adjudicated.
func (p *PendingDuplicate) Terminal() bool {
	return p.Status != PendingStatusPending
}
