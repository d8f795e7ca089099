package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bellapacxx/roshambo-backend/game"
	"github.com/bellapacxx/roshambo-backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Inventory is how many cards of each type an account holds.
type Inventory map[game.Card]int64

// Ledger is the external card inventory. Deduct fails with game.ErrNoCards when
// the account has none of that card left.
type Ledger interface {
	Deduct(ctx context.Context, accountRef string, card game.Card) error
	Balance(ctx context.Context, accountRef string) (Inventory, error)
	Grant(ctx context.Context, accountRef string, card game.Card, n int64) error
}

func cardColumn(c game.Card) (string, error) {
	if !c.Valid() {
		return "", game.Invalid(fmt.Sprintf("unknown card %q", c))
	}
	return strings.ToLower(string(c)), nil
}

// GormLedger keeps inventories in postgres, one row per account plus an audit
// row per change.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) Deduct(ctx context.Context, accountRef string, card game.Card) error {
	col, err := cardColumn(card)
	if err != nil {
		return err
	}

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CardInventory{}).
			Where("account_ref = ? AND "+col+" > 0", accountRef).
			Update(col, gorm.Expr(col+" - 1"))
		if res.Error != nil {
			return fmt.Errorf("debit %s for %s: %w", card, accountRef, res.Error)
		}
		if res.RowsAffected == 0 {
			return game.ErrNoCards
		}

		var inv models.CardInventory
		if err := tx.First(&inv, "account_ref = ?", accountRef).Error; err != nil {
			return fmt.Errorf("read inventory %s: %w", accountRef, err)
		}
		return tx.Create(&models.CardTransaction{
			AccountRef:   accountRef,
			Type:         models.DebitTransaction,
			Card:         string(card),
			Amount:       1,
			BalanceAfter: countOf(inv, card),
		}).Error
	})
}

func (l *GormLedger) Balance(ctx context.Context, accountRef string) (Inventory, error) {
	var inv models.CardInventory
	err := l.db.WithContext(ctx).First(&inv, "account_ref = ?", accountRef).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Inventory{game.Rock: 0, game.Paper: 0, game.Scissors: 0}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read inventory %s: %w", accountRef, err)
	}
	return Inventory{game.Rock: inv.Rock, game.Paper: inv.Paper, game.Scissors: inv.Scissors}, nil
}

func (l *GormLedger) Grant(ctx context.Context, accountRef string, card game.Card, n int64) error {
	col, err := cardColumn(card)
	if err != nil {
		return err
	}
	if n <= 0 {
		return game.Invalid("grant amount must be positive")
	}

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.CardInventory{AccountRef: accountRef}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("open inventory %s: %w", accountRef, err)
		}
		if err := tx.Model(&models.CardInventory{}).
			Where("account_ref = ?", accountRef).
			Update(col, gorm.Expr(col+" + ?", n)).Error; err != nil {
			return fmt.Errorf("grant %s to %s: %w", card, accountRef, err)
		}

		var inv models.CardInventory
		if err := tx.First(&inv, "account_ref = ?", accountRef).Error; err != nil {
			return fmt.Errorf("read inventory %s: %w", accountRef, err)
		}
		return tx.Create(&models.CardTransaction{
			AccountRef:   accountRef,
			Type:         models.GrantTransaction,
			Card:         string(card),
			Amount:       n,
			BalanceAfter: countOf(inv, card),
		}).Error
	})
}

// Transactions lists an account's most recent inventory changes.
func (l *GormLedger) Transactions(ctx context.Context, accountRef string, limit int) ([]models.CardTransaction, error) {
	var txs []models.CardTransaction
	err := l.db.WithContext(ctx).
		Where("account_ref = ?", accountRef).
		Order("id desc").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("list transactions %s: %w", accountRef, err)
	}
	return txs, nil
}

func countOf(inv models.CardInventory, c game.Card) int64 {
	switch c {
	case game.Rock:
		return inv.Rock
	case game.Paper:
		return inv.Paper
	case game.Scissors:
		return inv.Scissors
	}
	return 0
}
