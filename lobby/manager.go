// Package lobby owns the lobby lifecycle (WAITING → COUNTDOWN → SPINNING →
// RESOLVED) and the round resolution that runs at the end of it. All
// cross-request invariants — capacity, unique lucky numbers, the single fill
// transition — are enforced at the storage layer under a row lock on the lobby,
// never with process-local state.
package lobby

import (
	"errors"
	"log"
	"math/rand"
	"time"

	"project/ledger"
	"project/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Manager struct {
	db        *gorm.DB
	countdown time.Duration
	expiry    time.Duration // 0 disables the stale-lobby expiry policy
	now       func() time.Time
}

func NewManager(db *gorm.DB, countdown, expiry time.Duration) *Manager {
	return &Manager{
		db:        db,
		countdown: countdown,
		expiry:    expiry,
		now:       time.Now,
	}
}

func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "mysql" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// openLobby returns the oldest WAITING lobby for (tier, queueSize), creating
// one when none is open. Runs outside the join transaction: a lobby created
// here that the join never fills is just an empty open lobby.
func (m *Manager) openLobby(tier models.Tier, queueSize int) (uint, error) {
	var lb models.Lobby
	err := m.db.Where("tier = ? AND capacity = ? AND status = ?", tier, queueSize, models.LobbyWaiting).
		Order("id ASC").
		First(&lb).Error
	if err == nil {
		return lb.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	lb = models.Lobby{Tier: tier, Capacity: queueSize, Status: models.LobbyWaiting}
	if err := m.db.Create(&lb).Error; err != nil {
		return 0, err
	}
	return lb.ID, nil
}

// Join seats userID in the open lobby for (tier, queueSize), burning one entry
// ticket. The debit and the seat append commit together; the join that reaches
// capacity — exactly one, serialized by the lobby row lock — performs the
// WAITING → COUNTDOWN transition. A join racing that transition gets
// ErrLobbyFull and can retry into the next lobby.
func (m *Manager) Join(tier models.Tier, queueSize int, userID uint, luckyNumber *int) (*View, error) {
	if models.TierIndex(tier) < 0 {
		return nil, ErrUnknownTier
	}
	if !models.ValidQueueSize(tier, queueSize) {
		return nil, ErrQueueSize
	}
	if luckyNumber != nil && (*luckyNumber < 0 || *luckyNumber >= queueSize) {
		return nil, ErrInvalidNumber
	}

	lobbyID, err := m.openLobby(tier, queueSize)
	if err != nil {
		return nil, err
	}

	filled := false
	err = m.db.Transaction(func(tx *gorm.DB) error {
		var lb models.Lobby
		if err := lockForUpdate(tx).First(&lb, lobbyID).Error; err != nil {
			return err
		}
		// Re-check under the lock: the lobby we picked may have filled and
		// transitioned while we were waiting on it.
		if lb.Status != models.LobbyWaiting {
			return ErrLobbyFull
		}

		var players []models.LobbyPlayer
		if err := tx.Where("lobby_id = ?", lb.ID).Order("id ASC").Find(&players).Error; err != nil {
			return err
		}
		if len(players) >= lb.Capacity {
			return ErrLobbyFull
		}
		taken := make(map[int]bool, len(players))
		for _, p := range players {
			if p.UserID == userID {
				return ErrDuplicateEntry
			}
			if p.LuckyNumber != nil {
				taken[*p.LuckyNumber] = true
			}
		}
		if luckyNumber != nil && taken[*luckyNumber] {
			return ErrNumberTaken
		}

		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}

		if _, err := ledger.Debit(tx, userID, tier, int64(models.EntryCost(tier)), models.ReasonLobbyEntry,
			ledger.Meta{"lobby_id": lb.ID}); err != nil {
			return err
		}

		seat := models.LobbyPlayer{
			LobbyID:     lb.ID,
			UserID:      userID,
			DisplayName: user.Name,
			LuckyNumber: luckyNumber,
			TierUsed:    tier,
			JoinedAt:    m.now(),
		}
		if err := tx.Create(&seat).Error; err != nil {
			return err
		}

		if len(players)+1 == lb.Capacity {
			filled = true
			return m.fill(tx, &lb, append(players, seat), taken, luckyNumber)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Zero countdown spins on the spot instead of waiting for the sweeper.
	if filled && m.countdown == 0 {
		if err := m.resolve(lobbyID); err != nil {
			// Seat and debit already committed, so the join itself succeeded;
			// the sweeper retries resolution.
			log.Printf("[lobby] resolving lobby %d after fill: %v", lobbyID, err)
		}
	}

	return m.State(lobbyID, userID)
}

// fill runs inside the filling join's transaction: assigns every unchosen seat
// a distinct free number and starts the countdown.
func (m *Manager) fill(tx *gorm.DB, lb *models.Lobby, players []models.LobbyPlayer, taken map[int]bool, justTaken *int) error {
	if justTaken != nil {
		taken[*justTaken] = true
	}
	free := make([]int, 0, lb.Capacity)
	for n := 0; n < lb.Capacity; n++ {
		if !taken[n] {
			free = append(free, n)
		}
	}
	// Top-level rand is locked; fills for different lobbies run concurrently.
	rand.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })

	idx := 0
	for _, p := range players {
		if p.LuckyNumber != nil {
			continue
		}
		n := free[idx]
		idx++
		if err := tx.Model(&models.LobbyPlayer{}).Where("id = ?", p.ID).
			UpdateColumn("lucky_number", n).Error; err != nil {
			return err
		}
	}

	starts := m.now()
	ends := starts.Add(m.countdown)
	return tx.Model(&models.Lobby{}).Where("id = ?", lb.ID).Updates(map[string]interface{}{
		"status":              models.LobbyCountdown,
		"countdown_starts_at": starts,
		"countdown_ends_at":   ends,
	}).Error
}

// ChooseNumber lets a seated player pick or change their lucky number while
// the lobby is still WAITING. Once the countdown has begun the wheel layout is
// frozen.
func (m *Manager) ChooseNumber(lobbyID, userID uint, number int) (*View, error) {
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var lb models.Lobby
		if err := lockForUpdate(tx).First(&lb, lobbyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if lb.Status != models.LobbyWaiting {
			return ErrLobbyClosed
		}
		if number < 0 || number >= lb.Capacity {
			return ErrInvalidNumber
		}

		var players []models.LobbyPlayer
		if err := tx.Where("lobby_id = ?", lb.ID).Find(&players).Error; err != nil {
			return err
		}
		var seat *models.LobbyPlayer
		for i := range players {
			if players[i].UserID == userID {
				seat = &players[i]
				continue
			}
			if players[i].LuckyNumber != nil && *players[i].LuckyNumber == number {
				return ErrNumberTaken
			}
		}
		if seat == nil {
			return ErrNotFound
		}
		return tx.Model(&models.LobbyPlayer{}).Where("id = ?", seat.ID).
			UpdateColumn("lucky_number", number).Error
	})
	if err != nil {
		return nil, err
	}
	return m.State(lobbyID, userID)
}

// State returns a read-only projection of one lobby. Reading never mutates.
func (m *Manager) State(lobbyID, userID uint) (*View, error) {
	var lb models.Lobby
	err := m.db.Preload("Players", func(db *gorm.DB) *gorm.DB {
		return db.Order("lobby_players.id ASC")
	}).First(&lb, lobbyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var round *models.LobbyRound
	winnerName := ""
	var r models.LobbyRound
	err = m.db.Where("lobby_id = ?", lb.ID).First(&r).Error
	if err == nil {
		round = &r
		for _, p := range lb.Players {
			if p.ID == r.WinnerPlayerID {
				winnerName = p.DisplayName
				break
			}
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return buildView(&lb, round, winnerName, userID), nil
}

// ActiveState returns the lobby most relevant to the user for a tier and queue
// size: the unresolved lobby they are seated in if any, otherwise the open
// WAITING lobby.
func (m *Manager) ActiveState(tier models.Tier, queueSize int, userID uint) (*View, error) {
	if models.TierIndex(tier) < 0 {
		return nil, ErrUnknownTier
	}
	if !models.ValidQueueSize(tier, queueSize) {
		return nil, ErrQueueSize
	}

	var seated models.Lobby
	err := m.db.Joins("JOIN lobby_players ON lobby_players.lobby_id = lobbies.id").
		Where("lobby_players.user_id = ? AND lobbies.tier = ? AND lobbies.capacity = ? AND lobbies.status NOT IN ?",
			userID, tier, queueSize, []string{models.LobbyResolved, models.LobbyExpired}).
		Order("lobbies.id DESC").
		First(&seated).Error
	if err == nil {
		return m.State(seated.ID, userID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var open models.Lobby
	err = m.db.Where("tier = ? AND capacity = ? AND status = ?", tier, queueSize, models.LobbyWaiting).
		Order("id ASC").
		First(&open).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m.State(open.ID, userID)
}
