package models

import (
	"time"

	"gorm.io/datatypes"
)

type MatchStatus string

const (
	MatchCreated   MatchStatus = "Created"
	MatchStarted   MatchStatus = "Started"
	MatchCompleted MatchStatus = "Completed"
)

// MatchRecord is the durable history of one game, from offer to result.
type MatchRecord struct {
	ID             string         `gorm:"primaryKey;size:64" json:"id"`
	OwnerUserID    string         `gorm:"index;size:128" json:"owner_user_id"`
	OwnerName      string         `json:"owner_name"`
	OpponentUserID string         `gorm:"index;size:128" json:"opponent_user_id,omitempty"`
	OpponentName   string         `json:"opponent_name,omitempty"`
	Mode           string         `json:"mode"`
	Rounds         int            `json:"rounds"`
	MoveTimeout    int            `json:"move_timeout"`
	Private        bool           `json:"private"`
	Config         datatypes.JSON `json:"config,omitempty"`
	Status         MatchStatus    `gorm:"index;size:16" json:"status"`
	Winner         string         `json:"winner,omitempty"` // one | two | draw
	WinnerUserID   string         `json:"winner_user_id,omitempty"`
	EndReason      string         `json:"end_reason,omitempty"`
	LifeOne        int            `json:"life_one"`
	LifeTwo        int            `json:"life_two"`
	RoundsPlayed   int            `json:"rounds_played"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	EndedAt        *time.Time     `json:"ended_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
