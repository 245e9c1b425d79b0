package lobby

import (
	"context"
	"errors"
	"log"
	"time"

	"project/ledger"
	"project/models"

	"gorm.io/gorm"
)

// Sweep is the server-owned time trigger: countdowns whose deadline passed are
// spun, SPINNING lobbies with a pending settlement are retried, and — when the
// expiry policy is enabled — stale WAITING lobbies are refunded and closed.
// Client timers are trusted for none of this.
func (m *Manager) Sweep() {
	now := m.now()

	var due []models.Lobby
	if err := m.db.Where("status = ? AND countdown_ends_at <= ?", models.LobbyCountdown, now).
		Find(&due).Error; err != nil {
		log.Printf("[lobby] sweep: listing due countdowns: %v", err)
	} else {
		for _, lb := range due {
			if err := m.resolve(lb.ID); err != nil {
				if errors.Is(err, ErrNoWinningSeat) {
					// Broken invariant: leave the lobby where it is and shout.
					log.Printf("[lobby] FATAL invariant violation resolving lobby %d: %v", lb.ID, err)
					continue
				}
				log.Printf("[lobby] sweep: resolving lobby %d: %v", lb.ID, err)
			}
		}
	}

	// Settlement retries for rounds whose outcome is written but whose credit
	// or archive failed. A winner who never receives credit is a bug, not a
	// steady state.
	var spinning []models.Lobby
	if err := m.db.Where("status = ?", models.LobbySpinning).Find(&spinning).Error; err != nil {
		log.Printf("[lobby] sweep: listing spinning lobbies: %v", err)
	} else {
		for _, lb := range spinning {
			if err := m.settle(lb.ID); err != nil {
				log.Printf("[lobby] sweep: settling lobby %d: %v", lb.ID, err)
			}
		}
	}

	if m.expiry > 0 {
		m.expireStale(now)
	}
}

// expireStale applies the configurable never-filled policy: WAITING lobbies
// older than the expiry window refund every seat one entry ticket and close as
// EXPIRED. Lobbies that filled are never expired.
func (m *Manager) expireStale(now time.Time) {
	cutoff := now.Add(-m.expiry)
	var stale []models.Lobby
	if err := m.db.Where("status = ? AND created_at <= ?", models.LobbyWaiting, cutoff).
		Find(&stale).Error; err != nil {
		log.Printf("[lobby] sweep: listing stale lobbies: %v", err)
		return
	}
	for _, lb := range stale {
		err := m.db.Transaction(func(tx *gorm.DB) error {
			var locked models.Lobby
			if err := lockForUpdate(tx).First(&locked, lb.ID).Error; err != nil {
				return err
			}
			if locked.Status != models.LobbyWaiting {
				return nil
			}
			var players []models.LobbyPlayer
			if err := tx.Where("lobby_id = ?", locked.ID).Find(&players).Error; err != nil {
				return err
			}
			for _, p := range players {
				if _, err := ledger.Credit(tx, p.UserID, locked.Tier, int64(models.EntryCost(locked.Tier)),
					models.ReasonLobbyRefund, ledger.Meta{"lobby_id": locked.ID}); err != nil {
					return err
				}
			}
			return tx.Model(&models.Lobby{}).Where("id = ?", locked.ID).
				UpdateColumn("status", models.LobbyExpired).Error
		})
		if err != nil {
			log.Printf("[lobby] sweep: expiring lobby %d: %v", lb.ID, err)
		}
	}
}

// Run drives Sweep on a fixed interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
