package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bellapacxx/roshambo-backend/game"
	"github.com/redis/go-redis/v9"
)

// debitScript decrements a hash field only while it is positive and returns -1
// otherwise.
var debitScript = redis.NewScript(`
local v = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
if v <= 0 then
  return -1
end
return redis.call('HINCRBY', KEYS[1], ARGV[1], -1)
`)

// RedisLedger keeps each account's inventory in a hash.
type RedisLedger struct {
	rdb *redis.Client
}

func NewRedisLedger(rdb *redis.Client) *RedisLedger {
	return &RedisLedger{rdb: rdb}
}

func inventoryKey(accountRef string) string {
	return "inventory:" + accountRef
}

func (l *RedisLedger) Deduct(ctx context.Context, accountRef string, card game.Card) error {
	field, err := cardColumn(card)
	if err != nil {
		return err
	}
	left, err := debitScript.Run(ctx, l.rdb, []string{inventoryKey(accountRef)}, field).Int64()
	if err != nil {
		return fmt.Errorf("debit %s for %s: %w", card, accountRef, err)
	}
	if left < 0 {
		return game.ErrNoCards
	}
	return nil
}

func (l *RedisLedger) Balance(ctx context.Context, accountRef string) (Inventory, error) {
	vals, err := l.rdb.HGetAll(ctx, inventoryKey(accountRef)).Result()
	if err != nil {
		return nil, fmt.Errorf("read inventory %s: %w", accountRef, err)
	}
	inv := Inventory{}
	for _, c := range game.Cards {
		field, _ := cardColumn(c)
		n, _ := strconv.ParseInt(vals[field], 10, 64)
		inv[c] = n
	}
	return inv, nil
}

func (l *RedisLedger) Grant(ctx context.Context, accountRef string, card game.Card, n int64) error {
	field, err := cardColumn(card)
	if err != nil {
		return err
	}
	if n <= 0 {
		return game.Invalid("grant amount must be positive")
	}
	if err := l.rdb.HIncrBy(ctx, inventoryKey(accountRef), field, n).Err(); err != nil {
		return fmt.Errorf("grant %s to %s: %w", card, accountRef, err)
	}
	return nil
}
