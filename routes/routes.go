package routes

import (
	"github.com/bellapacxx/roshambo-backend/controllers"
	"github.com/bellapacxx/roshambo-backend/services"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Engine *services.Engine
	Store  services.MatchStore
	// Ledger is set only when inventories live in postgres.
	Ledger *services.GormLedger
	WS     *services.WSHandler
}

func SetupRoutes(r *gin.Engine, d Deps) {
	api := r.Group("/api")

	// ----------------------
	// Lobby routes
	// ----------------------
	api.GET("/offers", controllers.ListOffers(d.Engine))
	api.GET("/lobby", controllers.LobbyStatus(d.Engine))

	// ----------------------
	// Match history routes
	// ----------------------
	api.GET("/matches/:id", controllers.GetMatch(d.Store))
	api.GET("/players/:user_id/matches", controllers.ListPlayerMatches(d.Store))

	// ----------------------
	// Inventory routes
	// ----------------------
	api.GET("/inventory/:account", controllers.GetInventory(d.Engine))
	if d.Ledger != nil {
		api.GET("/inventory/:account/transactions", controllers.ListTransactions(d.Ledger))
	}

	// Player connection
	r.GET("/ws", d.WS.Handle)
}
