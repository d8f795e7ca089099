package controllers

import (
	"net/http"

	"github.com/bellapacxx/roshambo-backend/game"
	"github.com/bellapacxx/roshambo-backend/utils/logger"
	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	switch game.KindOf(err) {
	case game.KindValidation:
		status = http.StatusBadRequest
	case game.KindNotFound:
		status = http.StatusNotFound
	case game.KindConflict:
		status = http.StatusConflict
	default:
		logger.Errorf("[API] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": game.CodeOf(err)})
}
