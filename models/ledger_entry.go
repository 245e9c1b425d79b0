package models

import "time"

// Ledger entry reasons. Every balance mutation carries one of these.
const (
	ReasonLobbyEntry  = "LOBBY_ENTRY"
	ReasonLobbyWin    = "LOBBY_WIN"
	ReasonLobbyRefund = "LOBBY_REFUND"
	ReasonAdminGrant  = "ADMIN_GRANT"
	ReasonAdminRevoke = "ADMIN_REVOKE"
)

// LedgerEntry is an immutable record of one ticket balance change. Append-only:
// the sum of deltas for a user+tier must always equal the wallet balance.
type LedgerEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_ledger_user_tier" json:"user_id"`
	Tier      Tier      `gorm:"type:varchar(20);not null;index:idx_ledger_user_tier" json:"tier"`
	Delta     int64     `gorm:"not null" json:"delta"`
	Reason    string    `gorm:"type:varchar(30);not null" json:"reason"`
	Reference string    `gorm:"type:varchar(64);not null;index" json:"reference"`
	Metadata  *string   `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
