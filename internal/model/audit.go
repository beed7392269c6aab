package model

import "time"

// Audit actions. Details are free text for humans; accounting state is never
// reconstructed from them.
const (
	ActionSettingsSave     = "settings_save"
	ActionDepositAdd       = "deposit_add"
	ActionDepositDelete    = "deposit_delete"
	ActionDepositBulk      = "deposit_bulk_upload"
	ActionDuplicateSubmit  = "duplicate_submit"
	ActionDuplicateConfirm = "duplicate_confirm"
	ActionDuplicateDecline = "duplicate_decline"
	ActionTotalsReset      = "totals_reset"
	ActionAuditPurge       = "audit_purge"
	ActionAliasLink        = "alias_link"
)

// AuditEntry is one immutable line in the admin action trail.
type AuditEntry struct {
	ID        string    `json:"id"`
	Actor     string    `json:"admin_user"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"timestamp"`
}
