package controllers

import (
	"net/http"
	"strconv"

	"github.com/bellapacxx/roshambo-backend/game"
	"github.com/bellapacxx/roshambo-backend/services"
	"github.com/gin-gonic/gin"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// GetMatch returns a single match record.
func GetMatch(store services.MatchStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := store.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// ListPlayerMatches returns a player's most recent matches, newest first.
func ListPlayerMatches(store services.MatchStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := parseLimit(c.Query("limit"))
		if err != nil {
			respondError(c, err)
			return
		}
		recs, err := store.ListByPlayer(c.Request.Context(), c.Param("user_id"), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, recs)
	}
}

func parseLimit(s string) (int, error) {
	if s == "" {
		return defaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, game.Invalid("limit must be a positive number")
	}
	return min(n, maxHistoryLimit), nil
}
