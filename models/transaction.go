package models

import "time"

type TransactionType string

const (
	DebitTransaction TransactionType = "debit"
	GrantTransaction TransactionType = "grant"
)

// CardTransaction is the audit row written for every inventory change.
type CardTransaction struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	AccountRef   string          `gorm:"index;size:128" json:"account_ref"`
	Type         TransactionType `gorm:"size:16" json:"type"`
	Card         string          `gorm:"size:16" json:"card"`
	Amount       int64           `json:"amount"`
	BalanceAfter int64           `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}
