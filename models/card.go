package models

import "time"

// CardInventory holds how many of each card an account can still play.
type CardInventory struct {
	AccountRef string    `gorm:"primaryKey;size:128" json:"account_ref"`
	Rock       int64     `json:"rock"`
	Paper      int64     `json:"paper"`
	Scissors   int64     `json:"scissors"`
	UpdatedAt  time.Time `json:"updated_at"`
}
