package syncengine

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, engine *Engine) {
	h := &handler{engine: engine}

	g := e.Group("/sync")
	g.POST("/run", h.syncNow)
	g.GET("/conflicts", h.listConflicts)
	g.POST("/conflicts/resolve", h.resolveConflict)
}
