// Package ledger is the only writer of ticket balances. Every mutation runs as
// one atomic unit: the wallet row update and the append-only ledger entry
// commit together or not at all, so the balance is always the sum of its
// entries.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"

	"project/models"
	"project/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidAmount       = errors.New("amount must be a positive integer")
	ErrUnknownTier         = errors.New("unknown tier")
	ErrInsufficientBalance = errors.New("insufficient ticket balance")
)

// Meta is free-form audit context serialized onto the ledger entry.
type Meta map[string]interface{}

// lockForUpdate applies a row lock on engines that support SELECT ... FOR
// UPDATE. The sqlite driver used in tests serializes writes on its own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "mysql" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func encodeMeta(meta Meta) *string {
	if len(meta) == 0 {
		return nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

// Credit adds amount tickets of tier to the user's wallet and appends one
// ledger entry. db may be a live transaction; standalone calls get their own.
func Credit(db *gorm.DB, userID uint, tier models.Tier, amount int64, reason string, meta Meta) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if models.TierIndex(tier) < 0 {
		return 0, ErrUnknownTier
	}

	var newBalance int64
	err := db.Transaction(func(tx *gorm.DB) error {
		wallet := models.TicketWallet{UserID: userID, Tier: tier}
		if err := lockForUpdate(tx).Where("user_id = ? AND tier = ?", userID, tier).FirstOrCreate(&wallet).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.TicketWallet{}).
			Where("user_id = ? AND tier = ?", userID, tier).
			UpdateColumn("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
			return err
		}
		entry := models.LedgerEntry{
			UserID:    userID,
			Tier:      tier,
			Delta:     amount,
			Reason:    reason,
			Reference: utils.GenerateReferenceID(userID),
			Metadata:  encodeMeta(meta),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.TicketWallet{}).
			Select("balance").
			Where("user_id = ? AND tier = ?", userID, tier).
			Scan(&newBalance).Error
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Debit burns amount tickets of tier from the user's wallet. The balance check
// and the decrement are a single conditional UPDATE guarded by
// balance >= amount, so no concurrent debit can observe a stale balance.
func Debit(db *gorm.DB, userID uint, tier models.Tier, amount int64, reason string, meta Meta) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if models.TierIndex(tier) < 0 {
		return 0, ErrUnknownTier
	}

	var newBalance int64
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.TicketWallet{}).
			Where("user_id = ? AND tier = ? AND balance >= ?", userID, tier, amount).
			UpdateColumn("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientBalance
		}
		entry := models.LedgerEntry{
			UserID:    userID,
			Tier:      tier,
			Delta:     -amount,
			Reason:    reason,
			Reference: utils.GenerateReferenceID(userID),
			Metadata:  encodeMeta(meta),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.TicketWallet{}).
			Select("balance").
			Where("user_id = ? AND tier = ?", userID, tier).
			Scan(&newBalance).Error
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Balance returns the committed balance for one user+tier (0 when no wallet
// row exists yet).
func Balance(db *gorm.DB, userID uint, tier models.Tier) (int64, error) {
	var wallet models.TicketWallet
	err := db.Where("user_id = ? AND tier = ?", userID, tier).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// WalletFor returns a read-only Tier→balance snapshot of the latest committed
// state, zero-filled for tiers the user holds no row for.
func WalletFor(db *gorm.DB, userID uint) (map[models.Tier]int64, error) {
	snapshot := make(map[models.Tier]int64, len(models.TiersOrdered()))
	for _, t := range models.TiersOrdered() {
		snapshot[t] = 0
	}
	var rows []models.TicketWallet
	if err := db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		snapshot[row.Tier] = row.Balance
	}
	return snapshot, nil
}

// EntriesFor lists the user's most recent ledger entries, newest first.
func EntriesFor(db *gorm.DB, userID uint, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []models.LedgerEntry
	err := db.Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// Mismatch is one user+tier whose wallet balance disagrees with the replayed
// sum of its ledger entries, or holds a negative balance.
type Mismatch struct {
	UserID    uint        `json:"user_id"`
	Tier      models.Tier `json:"tier"`
	Balance   int64       `json:"balance"`
	LedgerSum int64       `json:"ledger_sum"`
}

// Reconcile replays the full ledger and compares it against every wallet row.
// An empty result means the conservation invariant holds; anything else needs
// operator attention.
func Reconcile(db *gorm.DB) ([]Mismatch, error) {
	type sumRow struct {
		UserID uint
		Tier   models.Tier
		Total  int64
	}
	var sums []sumRow
	if err := db.Model(&models.LedgerEntry{}).
		Select("user_id, tier, SUM(delta) AS total").
		Group("user_id, tier").
		Scan(&sums).Error; err != nil {
		return nil, err
	}

	sumByKey := make(map[string]sumRow, len(sums))
	for _, s := range sums {
		sumByKey[fmt.Sprintf("%d/%s", s.UserID, s.Tier)] = s
	}

	var wallets []models.TicketWallet
	if err := db.Find(&wallets).Error; err != nil {
		return nil, err
	}

	var mismatches []Mismatch
	seen := make(map[string]bool, len(wallets))
	for _, w := range wallets {
		key := fmt.Sprintf("%d/%s", w.UserID, w.Tier)
		seen[key] = true
		sum := sumByKey[key].Total
		if w.Balance != sum || w.Balance < 0 {
			mismatches = append(mismatches, Mismatch{UserID: w.UserID, Tier: w.Tier, Balance: w.Balance, LedgerSum: sum})
		}
	}
	// Entries with no wallet row at all are also a violation.
	for key, s := range sumByKey {
		if !seen[key] && s.Total != 0 {
			mismatches = append(mismatches, Mismatch{UserID: s.UserID, Tier: s.Tier, Balance: 0, LedgerSum: s.Total})
		}
	}
	return mismatches, nil
}
