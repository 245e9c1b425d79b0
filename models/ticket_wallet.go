package models

import "time"

// TicketWallet holds one user's balance for one tier. Rows are only ever
// written through the ledger package; the balance is the derived aggregate of
// that user+tier's ledger entries.
type TicketWallet struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_wallet_user_tier" json:"user_id"`
	Tier      Tier      `gorm:"type:varchar(20);not null;uniqueIndex:idx_wallet_user_tier" json:"tier"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (TicketWallet) TableName() string {
	return "ticket_wallets"
}
