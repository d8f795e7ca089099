package controllers

import (
	"net/http"

	"github.com/bellapacxx/roshambo-backend/services"
	"github.com/gin-gonic/gin"
)

// ListOffers returns the public games waiting for an opponent.
func ListOffers(engine *services.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, engine.ListOffers())
	}
}

// LobbyStatus reports how many rooms and offers are live.
func LobbyStatus(engine *services.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, engine.Stats())
	}
}
