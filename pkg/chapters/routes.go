package chapters

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, chapterService *Service) {
	h := &handler{chapterService: chapterService}

	g := e.Group("/chapters")
	g.POST("", h.create)
	g.GET("", h.list)
	g.POST("/reorder", h.reorder)
	g.GET("/:id", h.retrieve)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
}
