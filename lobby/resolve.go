package lobby

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"project/ledger"
	"project/models"
	"project/utils"

	"gorm.io/gorm"
)

// Resolution is system-triggered, never player-initiated: the sweeper (or a
// zero countdown) calls resolve once the countdown deadline passes. It runs in
// two phases, each its own transaction:
//
//   spin:   COUNTDOWN → SPINNING. Draws the seed, computes the outcome and
//           writes the LobbyRound. The row is immutable from here on.
//   settle: SPINNING → RESOLVED. Credits the winner, allocates the next game
//           number and archives the snapshot. Retried by the sweeper until it
//           commits; every retry reuses the stored outcome.

const fullSpins = 5 // cosmetic wheel turns before the winning segment

type outcome struct {
	ForceBase      int64
	ForceTotal     int64
	ForceFinal     int64
	WinningNumber  int
	WinningSegment int
	Segments       []models.WheelSegment
	RotationStart  float64
	RotationEnd    float64
	TotalDegrees   float64
}

func newSeed() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// seedOffset expands the seed into the wheel's range: the first 8 bytes of
// HMAC-SHA256(key=seed, msg="lobbyID|forceTotal|capacity") reduced modulo the
// capacity. Published so any player can replay the draw from the recorded seed.
func seedOffset(seed string, lobbyID uint, forceTotal int64, capacity int) int64 {
	mac := hmac.New(sha256.New, []byte(seed))
	fmt.Fprintf(mac, "%d|%d|%d", lobbyID, forceTotal, capacity)
	sum := mac.Sum(nil)
	return int64(binary.BigEndian.Uint64(sum[:8]) % uint64(capacity))
}

// computeOutcome derives the winning number for a filled lobby. Deterministic:
// the same seed, lobby and lucky numbers always produce the same result. The
// rotation fields are display values derived from the winning segment, never a
// second source of truth.
func computeOutcome(lobbyID uint, tier models.Tier, capacity int, seed string, players []models.LobbyPlayer) (*outcome, error) {
	if len(players) != capacity {
		return nil, fmt.Errorf("lobby %d has %d seats, want %d", lobbyID, len(players), capacity)
	}

	base := int64(1000 + 100*models.TierIndex(tier))
	total := base
	segments := make([]models.WheelSegment, capacity)
	byNumber := make(map[int]uint, capacity)
	for _, p := range players {
		if p.LuckyNumber == nil {
			return nil, fmt.Errorf("lobby %d seat %d has no lucky number", lobbyID, p.ID)
		}
		n := *p.LuckyNumber
		total += int64(n)
		segments[n] = models.WheelSegment{Segment: n, Number: n, UserID: p.UserID}
		byNumber[n] = p.UserID
	}
	if len(byNumber) != capacity {
		return nil, fmt.Errorf("lobby %d lucky numbers do not cover [0,%d)", lobbyID, capacity)
	}

	final := (total + seedOffset(seed, lobbyID, total, capacity)) % int64(capacity)
	winning := int(final)

	degreesPerSegment := 360.0 / float64(capacity)
	totalDegrees := utils.RoundFloat(float64(fullSpins)*360+float64(winning)*degreesPerSegment+degreesPerSegment/2, 2)

	return &outcome{
		ForceBase:      base,
		ForceTotal:     total,
		ForceFinal:     final,
		WinningNumber:  winning,
		WinningSegment: winning,
		Segments:       segments,
		RotationStart:  0,
		RotationEnd:    utils.RoundFloat(math.Mod(totalDegrees, 360), 2),
		TotalDegrees:   totalDegrees,
	}, nil
}

// startSpin performs the COUNTDOWN → SPINNING transition and writes the round.
// Idempotent: a lobby already past COUNTDOWN is left alone.
func (m *Manager) startSpin(lobbyID uint) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		var lb models.Lobby
		if err := lockForUpdate(tx).First(&lb, lobbyID).Error; err != nil {
			return err
		}
		if lb.Status != models.LobbyCountdown {
			return nil
		}

		var players []models.LobbyPlayer
		if err := tx.Where("lobby_id = ?", lb.ID).Order("id ASC").Find(&players).Error; err != nil {
			return err
		}

		seed, err := newSeed()
		if err != nil {
			return err
		}
		out, err := computeOutcome(lb.ID, lb.Tier, lb.Capacity, seed, players)
		if err != nil {
			return err
		}

		var winner *models.LobbyPlayer
		for i := range players {
			if players[i].LuckyNumber != nil && *players[i].LuckyNumber == out.WinningNumber {
				winner = &players[i]
				break
			}
		}
		if winner == nil {
			return ErrNoWinningSeat
		}

		segJSON, err := json.Marshal(out.Segments)
		if err != nil {
			return err
		}
		now := m.now()
		round := models.LobbyRound{
			LobbyID:           lb.ID,
			Seed:              seed,
			SpinForceBase:     out.ForceBase,
			SpinForceTotal:    out.ForceTotal,
			SpinForceFinal:    out.ForceFinal,
			SpinRotationStart: out.RotationStart,
			SpinRotationEnd:   out.RotationEnd,
			SpinTotalDegrees:  out.TotalDegrees,
			WheelSegments:     string(segJSON),
			WinningSegment:    out.WinningSegment,
			WinningNumber:     out.WinningNumber,
			WinnerPlayerID:    winner.ID,
			WinnerUserID:      winner.UserID,
			CountdownEndedAt:  lb.CountdownEndsAt,
			SpunAt:            &now,
		}
		if err := tx.Create(&round).Error; err != nil {
			return err
		}
		return tx.Model(&models.Lobby{}).Where("id = ?", lb.ID).
			UpdateColumn("status", models.LobbySpinning).Error
	})
}

// settle credits the winner, archives the game history under the next game
// number and marks the lobby RESOLVED. Safe to retry: nothing here recomputes
// the outcome, and a lobby no longer SPINNING is left alone.
func (m *Manager) settle(lobbyID uint) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		var lb models.Lobby
		if err := lockForUpdate(tx).First(&lb, lobbyID).Error; err != nil {
			return err
		}
		if lb.Status != models.LobbySpinning {
			return nil
		}

		var round models.LobbyRound
		if err := tx.Where("lobby_id = ?", lb.ID).First(&round).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("lobby %d is SPINNING with no round", lb.ID)
			}
			return err
		}

		var players []models.LobbyPlayer
		if err := tx.Where("lobby_id = ?", lb.ID).Order("id ASC").Find(&players).Error; err != nil {
			return err
		}

		rewardTier, ok := models.NextTier(lb.Tier)
		if !ok {
			return fmt.Errorf("lobby %d runs on the top tier %s", lb.ID, lb.Tier)
		}
		reward := int64(models.RewardAmount(lb.Capacity))
		if _, err := ledger.Credit(tx, round.WinnerUserID, rewardTier, reward, models.ReasonLobbyWin,
			ledger.Meta{"lobby_id": lb.ID, "seed": round.Seed}); err != nil {
			return err
		}

		// Allocate the next game number under lock so successful resolutions
		// never skip one.
		var maxNumber int64
		if err := lockForUpdate(tx).Model(&models.GameHistory{}).
			Select("COALESCE(MAX(game_number), 0)").
			Scan(&maxNumber).Error; err != nil {
			return err
		}

		now := m.now()
		winnerName := ""
		history := models.GameHistory{
			GameNumber:     maxNumber + 1,
			LobbyID:        lb.ID,
			Tier:           lb.Tier,
			Capacity:       lb.Capacity,
			Seed:           round.Seed,
			SpinForceBase:  round.SpinForceBase,
			SpinForceTotal: round.SpinForceTotal,
			SpinForceFinal: round.SpinForceFinal,
			WinningSegment: round.WinningSegment,
			WinningNumber:  round.WinningNumber,
			WinnerUserID:   round.WinnerUserID,
			RewardTier:     rewardTier,
			RewardAmount:   int(reward),
			ResolvedAt:     now,
		}
		for _, p := range players {
			isWinner := p.ID == round.WinnerPlayerID
			if isWinner {
				winnerName = p.DisplayName
			}
			history.Players = append(history.Players, models.GameHistoryPlayer{
				UserID:      p.UserID,
				DisplayName: p.DisplayName,
				LuckyNumber: *p.LuckyNumber,
				IsWinner:    isWinner,
				JoinedAt:    p.JoinedAt,
			})
		}
		history.WinnerName = winnerName
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.LobbyRound{}).Where("id = ?", round.ID).
			UpdateColumn("resolved_at", now).Error; err != nil {
			return err
		}
		return tx.Model(&models.Lobby{}).Where("id = ?", lb.ID).
			UpdateColumn("status", models.LobbyResolved).Error
	})
}

// resolve drives a lobby through both phases.
func (m *Manager) resolve(lobbyID uint) error {
	if err := m.startSpin(lobbyID); err != nil {
		return err
	}
	return m.settle(lobbyID)
}
