package models

import "time"

// LobbyRound holds the resolution inputs and outputs for one filled lobby.
// The row is written in the spin phase with the seed and every computed field;
// after ResolvedAt is set nothing is ever updated again. Settlement retries
// reuse the stored outcome verbatim.
type LobbyRound struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	LobbyID           uint       `gorm:"not null;uniqueIndex" json:"lobby_id"`
	Seed              string     `gorm:"type:varchar(64);not null" json:"seed"`
	SpinForceBase     int64      `gorm:"not null" json:"spin_force_base"`
	SpinForceTotal    int64      `gorm:"not null" json:"spin_force_total"`
	SpinForceFinal    int64      `gorm:"not null" json:"spin_force_final"`
	SpinRotationStart float64    `gorm:"not null;default:0" json:"spin_rotation_start"`
	SpinRotationEnd   float64    `gorm:"not null;default:0" json:"spin_rotation_end"`
	SpinTotalDegrees  float64    `gorm:"not null;default:0" json:"spin_total_degrees"`
	WheelSegments     string     `gorm:"type:text;not null" json:"wheel_segments"`
	WinningSegment    int        `gorm:"not null" json:"winning_segment"`
	WinningNumber     int        `gorm:"not null" json:"winning_number"`
	WinnerPlayerID    uint       `gorm:"not null" json:"winner_player_id"`
	WinnerUserID      uint       `gorm:"not null;index" json:"winner_user_id"`
	CountdownEndedAt  *time.Time `json:"countdown_ended_at,omitempty"`
	SpunAt            *time.Time `json:"spun_at,omitempty"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (LobbyRound) TableName() string {
	return "lobby_rounds"
}

// WheelSegment is one slice of the wheel as serialized into
// LobbyRound.WheelSegments. Segments partition [0, capacity) in order; with
// one seat per number the mapping is the identity partition.
type WheelSegment struct {
	Segment int  `json:"segment"`
	Number  int  `json:"number"`
	UserID  uint `json:"user_id"`
}
