package lobby

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"project/ledger"
	"project/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestManager(t *testing.T, countdown, expiry time.Duration) (*Manager, *gorm.DB) {
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
	if err := db.AutoMigrate(
		&models.User{},
		&models.TicketWallet{},
		&models.LedgerEntry{},
		&models.Lobby{},
		&models.LobbyPlayer{},
		&models.LobbyRound{},
		&models.GameHistory{},
		&models.GameHistoryPlayer{},
	); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return NewManager(db, countdown, expiry), db
}

// seedUsers creates n users each holding `tickets` tickets of tier, granted
// through the ledger so conservation holds from the start.
func seedUsers(t *testing.T, db *gorm.DB, n int, tier models.Tier, tickets int64) []uint {
	t.Helper()
	var existing int64
	if err := db.Model(&models.User{}).Count(&existing).Error; err != nil {
		t.Fatalf("counting users: %v", err)
	}
	ids := make([]uint, 0, n)
	for i := 0; i < n; i++ {
		seq := int(existing) + i + 1
		u := models.User{Name: fmt.Sprintf("Player %d", seq), Number: fmt.Sprintf("0812%06d", seq), Password: "x"}
		if err := db.Create(&u).Error; err != nil {
			t.Fatalf("creating user %d: %v", i, err)
		}
		if tickets > 0 {
			if _, err := ledger.Credit(db, u.ID, tier, tickets, models.ReasonAdminGrant, nil); err != nil {
				t.Fatalf("granting tickets to user %d: %v", u.ID, err)
			}
		}
		ids = append(ids, u.ID)
	}
	return ids
}

func TestJoinSeatsAndDebits(t *testing.T) {
	mgr, db := newTestManager(t, time.Minute, 0)
	users := seedUsers(t, db, 1, models.TierBronze, 2)

	pick := 7
	view, err := mgr.Join(models.TierBronze, 20, users[0], &pick)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if view.Status != models.LobbyWaiting {
		t.Fatalf("status = %s, want WAITING", view.Status)
	}
	if view.SeatsTaken != 1 || view.YourNumber == nil || *view.YourNumber != 7 {
		t.Fatalf("view wrong: %+v", view)
	}
	if view.RewardTier != models.TierSilver || view.RewardAmount != 1 {
		t.Fatalf("reward fields wrong: %+v", view)
	}

	balance, err := ledger.Balance(db, users[0], models.TierBronze)
	if err != nil || balance != 1 {
		t.Fatalf("balance after entry = %d, %v; want 1", balance, err)
	}
	var entry models.LedgerEntry
	if err := db.Where("user_id = ? AND reason = ?", users[0], models.ReasonLobbyEntry).First(&entry).Error; err != nil {
		t.Fatalf("entry ledger row missing: %v", err)
	}
	if entry.Delta != -1 {
		t.Fatalf("entry delta = %d, want -1", entry.Delta)
	}
}

func TestJoinValidation(t *testing.T) {
	mgr, db := newTestManager(t, time.Minute, 0)
	users := seedUsers(t, db, 2, models.TierBronze, 5)
	broke := seedUsers(t, db, 1, models.TierBronze, 0)

	if _, err := mgr.Join(models.Tier("COPPER"), 20, users[0], nil); !errors.Is(err, ErrUnknownTier) {
		t.Fatalf("unknown tier: %v", err)
	}
	if _, err := mgr.Join(models.TierBronze, 25, users[0], nil); !errors.Is(err, ErrQueueSize) {
		t.Fatalf("bad queue size: %v", err)
	}
	if _, err := mgr.Join(models.TierDiamond, 20, users[0], nil); !errors.Is(err, ErrQueueSize) {
		t.Fatalf("top tier runs no queues: %v", err)
	}
	bad := 20
	if _, err := mgr.Join(models.TierBronze, 20, users[0], &bad); !errors.Is(err, ErrInvalidNumber) {
		t.Fatalf("out-of-range number: %v", err)
	}

	pick := 3
	if _, err := mgr.Join(models.TierBronze, 20, users[0], &pick); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if _, err := mgr.Join(models.TierBronze, 20, users[0], nil); !errors.Is(err, ErrDuplicateEntry) {
		t.Fatalf("duplicate entry: %v", err)
	}
	if _, err := mgr.Join(models.TierBronze, 20, users[1], &pick); !errors.Is(err, ErrNumberTaken) {
		t.Fatalf("taken number: %v", err)
	}
	if _, err := mgr.Join(models.TierBronze, 20, broke[0], nil); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("zero balance: %v", err)
	}

	// The failed joins must not have seated anyone or burned tickets.
	var seats int64
	if err := db.Model(&models.LobbyPlayer{}).Count(&seats).Error; err != nil {
		t.Fatalf("counting seats: %v", err)
	}
	if seats != 1 {
		t.Fatalf("expected 1 seat, got %d", seats)
	}
	if balance, _ := ledger.Balance(db, broke[0], models.TierBronze); balance != 0 {
		t.Fatalf("broke user balance = %d, want 0", balance)
	}
}

func TestFillStartsCountdownOnce(t *testing.T) {
	mgr, db := newTestManager(t, time.Minute, 0)
	users := seedUsers(t, db, 20, models.TierBronze, 1)

	var lobbyID uint
	for i, uid := range users {
		view, err := mgr.Join(models.TierBronze, 20, uid, nil)
		if err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
		lobbyID = view.LobbyID
		if i < 19 && view.Status != models.LobbyWaiting {
			t.Fatalf("join %d: status = %s, want WAITING", i, view.Status)
		}
		if i == 19 {
			if view.Status != models.LobbyCountdown {
				t.Fatalf("final join: status = %s, want COUNTDOWN", view.Status)
			}
			if view.CountdownStartsAt == nil || view.CountdownEndsAt == nil {
				t.Fatal("countdown timestamps not set")
			}
			if got := view.CountdownEndsAt.Sub(*view.CountdownStartsAt); got != time.Minute {
				t.Fatalf("countdown window = %s, want 1m", got)
			}
		}
	}

	// Every seat holds a distinct number covering [0, 20).
	var players []models.LobbyPlayer
	if err := db.Where("lobby_id = ?", lobbyID).Find(&players).Error; err != nil {
		t.Fatalf("loading seats: %v", err)
	}
	if len(players) != 20 {
		t.Fatalf("expected 20 seats, got %d", len(players))
	}
	seen := make(map[int]bool, 20)
	for _, p := range players {
		if p.LuckyNumber == nil {
			t.Fatalf("seat %d left without a number after fill", p.ID)
		}
		n := *p.LuckyNumber
		if n < 0 || n >= 20 || seen[n] {
			t.Fatalf("number %d invalid or duplicated", n)
		}
		seen[n] = true
	}
}

func TestChooseNumberLockedAfterFill(t *testing.T) {
	mgr, db := newTestManager(t, time.Minute, 0)
	users := seedUsers(t, db, 20, models.TierBronze, 1)

	pick := 0
	view, err := mgr.Join(models.TierBronze, 20, users[0], &pick)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	lobbyID := view.LobbyID

	view, err = mgr.ChooseNumber(lobbyID, users[0], 12)
	if err != nil {
		t.Fatalf("choose while WAITING: %v", err)
	}
	if view.YourNumber == nil || *view.YourNumber != 12 {
		t.Fatalf("number not updated: %+v", view)
	}

	if _, err := mgr.ChooseNumber(lobbyID, users[0], 30); !errors.Is(err, ErrInvalidNumber) {
		t.Fatalf("out-of-range choose: %v", err)
	}
	if _, err := mgr.ChooseNumber(lobbyID, users[1], 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("choose without a seat: %v", err)
	}

	for _, uid := range users[1:] {
		if _, err := mgr.Join(models.TierBronze, 20, uid, nil); err != nil {
			t.Fatalf("filling join: %v", err)
		}
	}
	if _, err := mgr.ChooseNumber(lobbyID, users[0], 1); !errors.Is(err, ErrLobbyClosed) {
		t.Fatalf("choose after countdown started: %v", err)
	}
}

// The losing side of a fill race: the lobby the join picked filled under a
// concurrent request while its row still read WAITING.
func TestJoinFinalSeatRaceLosesCleanly(t *testing.T) {
	mgr, db := newTestManager(t, time.Minute, 0)
	users := seedUsers(t, db, 1, models.TierBronze, 1)

	lb := models.Lobby{Tier: models.TierBronze, Capacity: 20, Status: models.LobbyWaiting}
	if err := db.Create(&lb).Error; err != nil {
		t.Fatalf("creating lobby: %v", err)
	}
	for i := 0; i < 20; i++ {
		n := i
		seat := models.LobbyPlayer{
			LobbyID:     lb.ID,
			UserID:      uint(1000 + i),
			DisplayName: fmt.Sprintf("Rival %d", i+1),
			LuckyNumber: &n,
			TierUsed:    models.TierBronze,
			JoinedAt:    time.Now(),
		}
		if err := db.Create(&seat).Error; err != nil {
			t.Fatalf("seating rival %d: %v", i, err)
		}
	}

	if _, err := mgr.Join(models.TierBronze, 20, users[0], nil); !errors.Is(err, ErrLobbyFull) {
		t.Fatalf("join into full lobby: %v, want ErrLobbyFull", err)
	}

	// The loser holds no seat and burned no ticket.
	var seats int64
	if err := db.Model(&models.LobbyPlayer{}).Where("user_id = ?", users[0]).Count(&seats).Error; err != nil {
		t.Fatalf("counting seats: %v", err)
	}
	if seats != 0 {
		t.Fatalf("losing join left %d seats behind", seats)
	}
	if balance, _ := ledger.Balance(db, users[0], models.TierBronze); balance != 1 {
		t.Fatalf("losing join burned a ticket: balance = %d, want 1", balance)
	}
	var entries int64
	if err := db.Model(&models.LedgerEntry{}).
		Where("user_id = ? AND reason = ?", users[0], models.ReasonLobbyEntry).
		Count(&entries).Error; err != nil {
		t.Fatalf("counting entries: %v", err)
	}
	if entries != 0 {
		t.Fatalf("losing join appended %d entry debits", entries)
	}
}

// Two lobbies filling on different goroutines exercise the fill transition's
// shared number shuffle concurrently.
func TestConcurrentFillsAssignDistinctNumbers(t *testing.T) {
	mgr, db := newTestManager(t, time.Minute, 0)
	bronze := seedUsers(t, db, 20, models.TierBronze, 1)
	silver := seedUsers(t, db, 20, models.TierSilver, 1)

	var wg sync.WaitGroup
	join := func(tier models.Tier, ids []uint) {
		defer wg.Done()
		for _, uid := range ids {
			if _, err := mgr.Join(tier, 20, uid, nil); err != nil {
				t.Errorf("join %s: %v", tier, err)
				return
			}
		}
	}
	wg.Add(2)
	go join(models.TierBronze, bronze)
	go join(models.TierSilver, silver)
	wg.Wait()

	var lobbies []models.Lobby
	if err := db.Find(&lobbies).Error; err != nil {
		t.Fatalf("listing lobbies: %v", err)
	}
	if len(lobbies) != 2 {
		t.Fatalf("expected 2 lobbies, got %d", len(lobbies))
	}
	for _, lb := range lobbies {
		if lb.Status != models.LobbyCountdown {
			t.Fatalf("lobby %d status = %s, want COUNTDOWN", lb.ID, lb.Status)
		}
		var players []models.LobbyPlayer
		if err := db.Where("lobby_id = ?", lb.ID).Find(&players).Error; err != nil {
			t.Fatalf("loading seats: %v", err)
		}
		if len(players) != 20 {
			t.Fatalf("lobby %d has %d seats, want 20", lb.ID, len(players))
		}
		seen := make(map[int]bool, 20)
		for _, p := range players {
			if p.LuckyNumber == nil || *p.LuckyNumber < 0 || *p.LuckyNumber >= 20 || seen[*p.LuckyNumber] {
				t.Fatalf("lobby %d number coverage broken at seat %d", lb.ID, p.ID)
			}
			seen[*p.LuckyNumber] = true
		}
	}
}

func TestJoinAfterFillOpensNewLobby(t *testing.T) {
	mgr, db := newTestManager(t, time.Minute, 0)
	users := seedUsers(t, db, 21, models.TierBronze, 1)

	var firstID uint
	for _, uid := range users[:20] {
		view, err := mgr.Join(models.TierBronze, 20, uid, nil)
		if err != nil {
			t.Fatalf("join: %v", err)
		}
		firstID = view.LobbyID
	}

	view, err := mgr.Join(models.TierBronze, 20, users[20], nil)
	if err != nil {
		t.Fatalf("join after fill: %v", err)
	}
	if view.LobbyID == firstID {
		t.Fatal("join after fill landed in the closed lobby")
	}
	if view.Status != models.LobbyWaiting || view.SeatsTaken != 1 {
		t.Fatalf("new lobby wrong: %+v", view)
	}
}

func TestActiveStatePrefersSeatedLobby(t *testing.T) {
	mgr, db := newTestManager(t, time.Minute, 0)
	users := seedUsers(t, db, 2, models.TierBronze, 1)

	if _, err := mgr.ActiveState(models.TierBronze, 20, users[0]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("active with no lobby: %v", err)
	}

	seated, err := mgr.Join(models.TierBronze, 20, users[0], nil)
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	view, err := mgr.ActiveState(models.TierBronze, 20, users[0])
	if err != nil {
		t.Fatalf("active for seated user: %v", err)
	}
	if view.LobbyID != seated.LobbyID {
		t.Fatalf("active lobby = %d, want %d", view.LobbyID, seated.LobbyID)
	}

	// A user with no seat still sees the open lobby.
	view, err = mgr.ActiveState(models.TierBronze, 20, users[1])
	if err != nil {
		t.Fatalf("active for bystander: %v", err)
	}
	if view.LobbyID != seated.LobbyID || view.YourNumber != nil {
		t.Fatalf("bystander view wrong: %+v", view)
	}
}

func TestSweepExpiresStaleLobby(t *testing.T) {
	mgr, db := newTestManager(t, time.Minute, time.Minute)
	users := seedUsers(t, db, 2, models.TierBronze, 1)

	view, err := mgr.Join(models.TierBronze, 20, users[0], nil)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := mgr.Join(models.TierBronze, 20, users[1], nil); err != nil {
		t.Fatalf("join: %v", err)
	}

	// Not stale yet.
	mgr.Sweep()
	var lb models.Lobby
	if err := db.First(&lb, view.LobbyID).Error; err != nil {
		t.Fatalf("loading lobby: %v", err)
	}
	if lb.Status != models.LobbyWaiting {
		t.Fatalf("fresh lobby swept early: %s", lb.Status)
	}

	mgr.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	mgr.Sweep()

	if err := db.First(&lb, view.LobbyID).Error; err != nil {
		t.Fatalf("loading lobby: %v", err)
	}
	if lb.Status != models.LobbyExpired {
		t.Fatalf("status = %s, want EXPIRED", lb.Status)
	}
	for _, uid := range users {
		balance, err := ledger.Balance(db, uid, models.TierBronze)
		if err != nil || balance != 1 {
			t.Fatalf("user %d balance = %d, %v; want refund back to 1", uid, balance, err)
		}
		var refund models.LedgerEntry
		if err := db.Where("user_id = ? AND reason = ?", uid, models.ReasonLobbyRefund).First(&refund).Error; err != nil {
			t.Fatalf("refund entry missing for user %d: %v", uid, err)
		}
	}

	mismatches, err := ledger.Reconcile(db)
	if err != nil || len(mismatches) != 0 {
		t.Fatalf("reconcile after expiry: %v %+v", err, mismatches)
	}
}
