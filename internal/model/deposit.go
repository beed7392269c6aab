package model

import "time"

// Deposit is one contribution of items to the pool. Value is the per-unit
// price captured when the deposit was inserted; later settings edits do not
// change it.
type Deposit struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Item      string    `json:"item"`
	Qty       int       `json:"qty"`
	Value     float64   `json:"value"`
	CreatedAt time.Time `json:"timestamp"`
}

// CurrentValue is the deposit's worth at its snapshot price.
func (d *Deposit) CurrentValue() float64 {
	return float64(d.Qty) * d.Value
}
