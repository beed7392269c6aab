package model

// Defaults applied when an item or the bank configuration is missing from
// the settings store. Reads never fail due to absence.
const (
	DefaultTarget     = 100
	DefaultBankBuyPct = 80
)

// ItemSetting is one catalog entry: how many units make a full stack and
// what a full stack is worth in Divines. Category is cosmetic grouping.
type ItemSetting struct {
	Name        string  `json:"name"`
	Category    string  `json:"category,omitempty"`
	Target      int     `json:"target"`
	DivineValue float64 `json:"divine_value"`
}

// Settings is the full exchange-rate configuration: the item catalog plus
// the bank's instant-sell percentage. Validated and saved as one unit.
type Settings struct {
	Items      map[string]ItemSetting `json:"items"`
	BankBuyPct int                    `json:"bank_buy_pct"`
}

// DefaultItemSetting returns the defaults for an unconfigured item name.
func DefaultItemSetting(name string) ItemSetting {
	return ItemSetting{Name: name, Target: DefaultTarget, DivineValue: 0}
}
