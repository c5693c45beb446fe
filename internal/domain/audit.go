package domain

import "time"

// AuditLog is an audit trail entry for economy events and cheat flags
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	Address   string                 `db:"address" json:"address"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	IP        string                 `db:"ip" json:"ip,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Audit categories
const (
	AuditCategoryPurchase  = "purchase"
	AuditCategoryPayout    = "payout"
	AuditCategoryAntiCheat = "anticheat"
	AuditCategoryAdmin     = "admin"
)

// Audit actions
const (
	AuditActionLandPurchase      = "land_purchase"
	AuditActionEquipmentPurchase = "equipment_purchase"
	AuditActionBuyWithGold       = "buy_with_gold"
	AuditActionUnverifiedPayment = "unverified_payment"

	AuditActionSell          = "sell"
	AuditActionPayoutSent    = "payout_sent"
	AuditActionPayoutPending = "payout_pending"
	AuditActionPayoutRetried = "payout_retried"

	AuditActionSellExceeded    = "sell_exceeded_balance"
	AuditActionInventoryDesync = "inventory_desync"
	AuditActionGoldClaim       = "implausible_gold_claim"

	AuditActionReconcile = "reconcile"
)

// PayoutStatus is the outcome of a sell as reported to the client
type PayoutStatus string

const (
	PayoutStatusImmediate PayoutStatus = "immediate"
	PayoutStatusPending   PayoutStatus = "pending"
)
