package ledger

import (
	"errors"
	"testing"

	"project/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrapping sql.DB: %v", err)
	}
	// one connection so every statement sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.TicketWallet{}, &models.LedgerEntry{}); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return db
}

func TestCreditThenDebit(t *testing.T) {
	db := newTestDB(t)

	balance, err := Credit(db, 1, models.TierBronze, 3, models.ReasonAdminGrant, nil)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if balance != 3 {
		t.Fatalf("balance after credit = %d, want 3", balance)
	}

	balance, err = Debit(db, 1, models.TierBronze, 1, models.ReasonLobbyEntry, Meta{"lobby_id": 7})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if balance != 2 {
		t.Fatalf("balance after debit = %d, want 2", balance)
	}

	got, err := Balance(db, 1, models.TierBronze)
	if err != nil || got != 2 {
		t.Fatalf("Balance = %d, %v; want 2", got, err)
	}

	var entries []models.LedgerEntry
	if err := db.Order("id ASC").Find(&entries).Error; err != nil {
		t.Fatalf("listing entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(entries))
	}
	var sum int64
	for _, e := range entries {
		sum += e.Delta
	}
	if sum != got {
		t.Fatalf("ledger sum %d disagrees with balance %d", sum, got)
	}
	if entries[1].Delta != -1 || entries[1].Reason != models.ReasonLobbyEntry {
		t.Fatalf("debit entry wrong: %+v", entries[1])
	}
	if entries[1].Metadata == nil {
		t.Fatal("debit entry lost its metadata")
	}
}

func TestDebitInsufficientBalance(t *testing.T) {
	db := newTestDB(t)

	if _, err := Debit(db, 1, models.TierGold, 1, models.ReasonLobbyEntry, nil); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("debit with no wallet: %v, want ErrInsufficientBalance", err)
	}

	if _, err := Credit(db, 1, models.TierGold, 2, models.ReasonAdminGrant, nil); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := Debit(db, 1, models.TierGold, 3, models.ReasonLobbyEntry, nil); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overdraw: %v, want ErrInsufficientBalance", err)
	}

	// A failed debit must not leave an entry behind.
	var count int64
	if err := db.Model(&models.LedgerEntry{}).Where("delta < 0").Count(&count).Error; err != nil {
		t.Fatalf("counting entries: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed debits appended %d entries", count)
	}
	if got, _ := Balance(db, 1, models.TierGold); got != 2 {
		t.Fatalf("balance after failed debit = %d, want 2", got)
	}
}

func TestRejectsInvalidInput(t *testing.T) {
	db := newTestDB(t)

	if _, err := Credit(db, 1, models.TierBronze, 0, models.ReasonAdminGrant, nil); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero credit: %v, want ErrInvalidAmount", err)
	}
	if _, err := Debit(db, 1, models.TierBronze, -5, models.ReasonAdminRevoke, nil); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative debit: %v, want ErrInvalidAmount", err)
	}
	if _, err := Credit(db, 1, models.Tier("COPPER"), 1, models.ReasonAdminGrant, nil); !errors.Is(err, ErrUnknownTier) {
		t.Fatalf("unknown tier: %v, want ErrUnknownTier", err)
	}
}

func TestWalletForZeroFills(t *testing.T) {
	db := newTestDB(t)

	if _, err := Credit(db, 9, models.TierSilver, 4, models.ReasonAdminGrant, nil); err != nil {
		t.Fatalf("credit: %v", err)
	}
	snapshot, err := WalletFor(db, 9)
	if err != nil {
		t.Fatalf("WalletFor: %v", err)
	}
	if len(snapshot) != len(models.TiersOrdered()) {
		t.Fatalf("snapshot covers %d tiers, want %d", len(snapshot), len(models.TiersOrdered()))
	}
	if snapshot[models.TierSilver] != 4 {
		t.Fatalf("SILVER = %d, want 4", snapshot[models.TierSilver])
	}
	if snapshot[models.TierDiamond] != 0 {
		t.Fatalf("DIAMOND = %d, want 0", snapshot[models.TierDiamond])
	}
}

func TestEntriesForNewestFirst(t *testing.T) {
	db := newTestDB(t)

	for i := 0; i < 3; i++ {
		if _, err := Credit(db, 2, models.TierBronze, int64(i+1), models.ReasonAdminGrant, nil); err != nil {
			t.Fatalf("credit %d: %v", i, err)
		}
	}
	entries, err := EntriesFor(db, 2, 2)
	if err != nil {
		t.Fatalf("EntriesFor: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("limit ignored: got %d entries", len(entries))
	}
	if entries[0].Delta != 3 || entries[1].Delta != 2 {
		t.Fatalf("entries not newest first: %+v", entries)
	}
}

func TestReconcileDetectsDrift(t *testing.T) {
	db := newTestDB(t)

	if _, err := Credit(db, 1, models.TierBronze, 5, models.ReasonAdminGrant, nil); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := Debit(db, 1, models.TierBronze, 2, models.ReasonLobbyEntry, nil); err != nil {
		t.Fatalf("debit: %v", err)
	}

	mismatches, err := Reconcile(db)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(mismatches) != 0 {
		t.Fatalf("clean ledger reported mismatches: %+v", mismatches)
	}

	// Corrupt the wallet row behind the ledger's back.
	if err := db.Model(&models.TicketWallet{}).
		Where("user_id = ? AND tier = ?", 1, models.TierBronze).
		UpdateColumn("balance", 99).Error; err != nil {
		t.Fatalf("corrupting wallet: %v", err)
	}

	mismatches, err = Reconcile(db)
	if err != nil {
		t.Fatalf("reconcile after corruption: %v", err)
	}
	if len(mismatches) != 1 {
		t.Fatalf("expected 1 mismatch, got %+v", mismatches)
	}
	m := mismatches[0]
	if m.UserID != 1 || m.Tier != models.TierBronze || m.Balance != 99 || m.LedgerSum != 3 {
		t.Fatalf("mismatch fields wrong: %+v", m)
	}
}
