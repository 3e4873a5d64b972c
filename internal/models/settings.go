package models

import "github.com/ledgerbill/invoice-service/internal/billing"

// Settings sources: a user's own saved row, or the application defaults.
const (
	SettingsSourceUser    = "user"
	SettingsSourceDefault = "default"
)

// LateFeePolicySettings carries a late-fee policy together with where it
// came from, so clients can tell a saved policy from the fallback.
type LateFeePolicySettings struct {
	Source string                `json:"source"`
	Policy billing.LateFeePolicy `json:"policy"`
}

// ReminderLadderSettings carries a reminder ladder together with its origin
type ReminderLadderSettings struct {
	Source string         `json:"source"`
	Ladder billing.Ladder `json:"ladder"`
}
