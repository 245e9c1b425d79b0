package models

import "time"

// Lobby lifecycle. WAITING through RESOLVED is strictly forward, one step at a
// time. EXPIRED is a configurable side-exit taken only from WAITING when the
// expiry policy is enabled (see lobby.Sweeper).
const (
	LobbyWaiting   = "WAITING"
	LobbyCountdown = "COUNTDOWN"
	LobbySpinning  = "SPINNING"
	LobbyResolved  = "RESOLVED"
	LobbyExpired   = "EXPIRED"
)

// Lobby is one capacity-bounded round-in-the-making for a tier and queue size.
type Lobby struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Tier              Tier       `gorm:"type:varchar(20);not null;index:idx_lobby_open" json:"tier"`
	Capacity          int        `gorm:"not null;index:idx_lobby_open" json:"capacity"`
	Status            string     `gorm:"type:varchar(15);not null;default:'WAITING';index:idx_lobby_open" json:"status"`
	CountdownStartsAt *time.Time `json:"countdown_starts_at,omitempty"`
	CountdownEndsAt   *time.Time `json:"countdown_ends_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"-"`

	Players []LobbyPlayer `gorm:"foreignKey:LobbyID" json:"players,omitempty"`
}

func (Lobby) TableName() string {
	return "lobbies"
}

// LobbyPlayer is one seat. LuckyNumber stays nil until the player picks one or
// the fill transition assigns the leftovers; the unique index allows multiple
// NULLs but never two seats on the same number.
type LobbyPlayer struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	LobbyID     uint      `gorm:"not null;uniqueIndex:idx_seat_number;index:idx_seat_user" json:"lobby_id"`
	UserID      uint      `gorm:"not null;index:idx_seat_user" json:"user_id"`
	DisplayName string    `gorm:"size:100;not null" json:"display_name"`
	LuckyNumber *int      `gorm:"uniqueIndex:idx_seat_number" json:"lucky_number,omitempty"`
	TierUsed    Tier      `gorm:"type:varchar(20);not null" json:"tier_used"`
	JoinedAt    time.Time `gorm:"not null" json:"joined_at"`
}

func (LobbyPlayer) TableName() string {
	return "lobby_players"
}
