package model

// AdminTotals is the running sum of value an administrator has introduced
// into the pool since their last reset, split by payout mode.
type AdminTotals struct {
	Admin        string  `json:"admin"`
	TotalNormal  float64 `json:"total_normal_value"`
	TotalInstant float64 `json:"total_instant_value"`
}
