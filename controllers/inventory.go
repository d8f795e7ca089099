package controllers

import (
	"net/http"

	"github.com/bellapacxx/roshambo-backend/services"
	"github.com/gin-gonic/gin"
)

// GetInventory returns how many cards of each type an account holds.
func GetInventory(engine *services.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		account := c.Param("account")
		inv, err := engine.Balance(c.Request.Context(), account)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, services.BalancePayload{AccountRef: account, Inventory: inv})
	}
}
