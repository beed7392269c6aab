// Package valuation prices deposits against the configured exchange rates.
// All functions are pure; persistence belongs to internal/store.
package valuation

import (
	"math"

	"github.com/poeconomics/fundbank/internal/model"
)

// FeePct is the payout fee taken from a raw value.
const FeePct = 0.10

// UnitValue returns the value of a single unit: divineValue / target.
// A target below 1 is a configuration error, never a division fault.
func UnitValue(divineValue float64, target int) (float64, error) {
	if target < 1 {
		return 0, model.ErrInvalidConfig
	}
	return divineValue / float64(target), nil
}

// CurrentValue prices a deposit at its stored per-unit snapshot. Live
// settings are deliberately not consulted here: historical deposits keep
// the price they were accepted at.
func CurrentValue(qty int, valuePerUnit float64) float64 {
	return float64(qty) * valuePerUnit
}

// InstantSellUnitValue is the discounted per-unit rate for immediate
// liquidation: bankBuyPct percent of the normal unit value.
func InstantSellUnitValue(unitValue float64, bankBuyPct int) float64 {
	return unitValue * float64(bankBuyPct) / 100
}

// Payout splits a raw value into fee and net, each rounded DOWN to one
// decimal place independently. The two are floored from different
// intermediate expressions, so fee+net does not always equal raw; that
// discrepancy is part of the payout contract and must not be "fixed".
func Payout(raw float64) (fee, net float64) {
	fee = floorTenth(raw * FeePct)
	net = floorTenth(raw - raw*FeePct)
	return fee, net
}

func floorTenth(v float64) float64 {
	return math.Floor(v*10) / 10
}

// BasketLine is one item/quantity pair in a what-if estimate.
type BasketLine struct {
	Item string `json:"item"`
	Qty  int    `json:"qty"`
}

// PricedLine is a basket line priced at current settings.
type PricedLine struct {
	Item      string  `json:"item"`
	Qty       int     `json:"qty"`
	UnitValue float64 `json:"unit_value"`
	Value     float64 `json:"value"`
}

// PriceBasket prices each line against the given settings and returns the
// priced lines plus the basket total. Unknown items and non-positive
// quantities reject the whole basket.
func PriceBasket(lines []BasketLine, s *model.Settings) ([]PricedLine, float64, error) {
	priced := make([]PricedLine, 0, len(lines))
	var total float64

	for _, line := range lines {
		if line.Item == "" {
			return nil, 0, model.Validationf("basket line is missing an item name")
		}
		if line.Qty <= 0 {
			return nil, 0, model.Validationf("quantity for %q must be positive", line.Item)
		}

		setting, ok := s.Items[line.Item]
		if !ok {
			return nil, 0, model.Validationf("unknown item %q", line.Item)
		}

		unit, err := UnitValue(setting.DivineValue, setting.Target)
		if err != nil {
			return nil, 0, err
		}

		value := CurrentValue(line.Qty, unit)
		priced = append(priced, PricedLine{
			Item:      line.Item,
			Qty:       line.Qty,
			UnitValue: unit,
			Value:     value,
		})
		total += value
	}

	return priced, total, nil
}
