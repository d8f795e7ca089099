// Command migrate creates the postgres tables and can seed card inventories.
//
//	go run ./cmd -seed alice=10 -seed bob=10
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bellapacxx/roshambo-backend/config"
	"github.com/bellapacxx/roshambo-backend/game"
	"github.com/bellapacxx/roshambo-backend/services"
	"github.com/bellapacxx/roshambo-backend/utils/logger"
	"github.com/joho/godotenv"
)

type seedFlags []string

func (s *seedFlags) String() string     { return strings.Join(*s, ",") }
func (s *seedFlags) Set(v string) error { *s = append(*s, v); return nil }

// parseSeed reads "account=count".
func parseSeed(v string) (string, int64, error) {
	account, count, ok := strings.Cut(v, "=")
	if !ok || account == "" {
		return "", 0, fmt.Errorf("seed %q: want account=count", v)
	}
	n, err := strconv.ParseInt(count, 10, 64)
	if err != nil || n <= 0 {
		return "", 0, fmt.Errorf("seed %q: count must be a positive number", v)
	}
	return account, n, nil
}

func main() {
	var seeds seedFlags
	flag.Var(&seeds, "seed", "grant account=N of every card type (repeatable)")
	flag.Parse()

	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatalf("[FATAL] DATABASE_URL is required")
	}

	db, err := config.SetupDatabase(dsn)
	if err != nil {
		logger.Fatalf("[FATAL] %v", err)
	}
	logger.Infof("Database migration completed")

	ledger := services.NewGormLedger(db)
	for _, s := range seeds {
		account, n, err := parseSeed(s)
		if err != nil {
			logger.Fatalf("[FATAL] %v", err)
		}
		for _, card := range game.Cards {
			if err := ledger.Grant(context.Background(), account, card, n); err != nil {
				logger.Fatalf("[FATAL] seed %s: %v", account, err)
			}
		}
		logger.Infof("Seeded %s with %d of each card", account, n)
	}
}
