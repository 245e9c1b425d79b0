package models

import "time"

// GameHistory is the durable archival snapshot of one resolved round. Keyed by
// a strictly increasing game number and never mutated after creation; audit and
// search read from here, not from live lobby state.
type GameHistory struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	GameNumber     int64     `gorm:"not null;uniqueIndex" json:"game_number"`
	LobbyID        uint      `gorm:"not null;index" json:"lobby_id"`
	Tier           Tier      `gorm:"type:varchar(20);not null;index" json:"tier"`
	Capacity       int       `gorm:"not null" json:"capacity"`
	Seed           string    `gorm:"type:varchar(64);not null" json:"seed"`
	SpinForceBase  int64     `gorm:"not null" json:"spin_force_base"`
	SpinForceTotal int64     `gorm:"not null" json:"spin_force_total"`
	SpinForceFinal int64     `gorm:"not null" json:"spin_force_final"`
	WinningSegment int       `gorm:"not null" json:"winning_segment"`
	WinningNumber  int       `gorm:"not null" json:"winning_number"`
	WinnerUserID   uint      `gorm:"not null;index" json:"winner_user_id"`
	WinnerName     string    `gorm:"size:100;not null" json:"winner_name"`
	RewardTier     Tier      `gorm:"type:varchar(20);not null" json:"reward_tier"`
	RewardAmount   int       `gorm:"not null" json:"reward_amount"`
	ResolvedAt     time.Time `gorm:"not null;index" json:"resolved_at"`
	CreatedAt      time.Time `json:"-"`

	Players []GameHistoryPlayer `gorm:"foreignKey:GameHistoryID" json:"players,omitempty"`
}

func (GameHistory) TableName() string {
	return "game_histories"
}

// GameHistoryPlayer freezes one seat of the archived round.
type GameHistoryPlayer struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	GameHistoryID uint      `gorm:"not null;index" json:"game_history_id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	DisplayName   string    `gorm:"size:100;not null" json:"display_name"`
	LuckyNumber   int       `gorm:"not null" json:"lucky_number"`
	IsWinner      bool      `gorm:"not null;default:false" json:"is_winner"`
	JoinedAt      time.Time `gorm:"not null" json:"joined_at"`
}

func (GameHistoryPlayer) TableName() string {
	return "game_history_players"
}
