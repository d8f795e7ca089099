package controllers

import (
	"net/http"

	"github.com/bellapacxx/roshambo-backend/game"
	"github.com/bellapacxx/roshambo-backend/services"
	"github.com/gin-gonic/gin"
)

// ListTransactions returns an account's recent card debits and grants.
func ListTransactions(ledger *services.GormLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := parseLimit(c.Query("limit"))
		if err != nil {
			respondError(c, err)
			return
		}
		txs, err := ledger.Transactions(c.Request.Context(), c.Param("account"), limit)
		if err != nil {
			respondError(c, game.External("ledger_unavailable", err))
			return
		}
		c.JSON(http.StatusOK, txs)
	}
}
