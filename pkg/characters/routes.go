package characters

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, characterService *Service) {
	h := &handler{characterService: characterService}

	g := e.Group("/characters")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
}
