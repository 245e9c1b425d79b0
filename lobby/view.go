package lobby

import (
	"time"

	"project/models"
)

// SeatView is one seat as shown to a caller.
type SeatView struct {
	DisplayName string    `json:"display_name"`
	LuckyNumber *int      `json:"lucky_number,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
	IsYou       bool      `json:"is_you"`
}

// RoundView summarizes the resolution of a lobby once it has spun. The seed is
// included so anyone can replay the outcome.
type RoundView struct {
	Seed             string     `json:"seed"`
	SpinForceBase    int64      `json:"spin_force_base"`
	SpinForceTotal   int64      `json:"spin_force_total"`
	SpinForceFinal   int64      `json:"spin_force_final"`
	SpinTotalDegrees float64    `json:"spin_total_degrees"`
	WinningSegment   int        `json:"winning_segment"`
	WinningNumber    int        `json:"winning_number"`
	WinnerName       string     `json:"winner_name"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
}

// View is the read-only projection of a lobby handed to controllers. Building
// one never mutates lobby state.
type View struct {
	LobbyID           uint        `json:"lobby_id"`
	Tier              models.Tier `json:"tier"`
	Capacity          int         `json:"capacity"`
	Status            string      `json:"status"`
	SeatsTaken        int         `json:"seats_taken"`
	RewardTier        models.Tier `json:"reward_tier"`
	RewardAmount      int         `json:"reward_amount"`
	CountdownStartsAt *time.Time  `json:"countdown_starts_at,omitempty"`
	CountdownEndsAt   *time.Time  `json:"countdown_ends_at,omitempty"`
	Players           []SeatView  `json:"players"`
	YourNumber        *int        `json:"your_number,omitempty"`
	Round             *RoundView  `json:"round,omitempty"`
}

func buildView(lb *models.Lobby, round *models.LobbyRound, winnerName string, userID uint) *View {
	rewardTier, _ := models.NextTier(lb.Tier)
	v := &View{
		LobbyID:           lb.ID,
		Tier:              lb.Tier,
		Capacity:          lb.Capacity,
		Status:            lb.Status,
		SeatsTaken:        len(lb.Players),
		RewardTier:        rewardTier,
		RewardAmount:      models.RewardAmount(lb.Capacity),
		CountdownStartsAt: lb.CountdownStartsAt,
		CountdownEndsAt:   lb.CountdownEndsAt,
		Players:           make([]SeatView, 0, len(lb.Players)),
	}
	for _, p := range lb.Players {
		seat := SeatView{
			DisplayName: p.DisplayName,
			LuckyNumber: p.LuckyNumber,
			JoinedAt:    p.JoinedAt,
			IsYou:       p.UserID == userID,
		}
		if seat.IsYou {
			v.YourNumber = p.LuckyNumber
		}
		v.Players = append(v.Players, seat)
	}
	if round != nil {
		v.Round = &RoundView{
			Seed:             round.Seed,
			SpinForceBase:    round.SpinForceBase,
			SpinForceTotal:   round.SpinForceTotal,
			SpinForceFinal:   round.SpinForceFinal,
			SpinTotalDegrees: round.SpinTotalDegrees,
			WinningSegment:   round.WinningSegment,
			WinningNumber:    round.WinningNumber,
			WinnerName:       winnerName,
			ResolvedAt:       round.ResolvedAt,
		}
	}
	return v
}
