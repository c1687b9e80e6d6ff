package assets

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, assetService *Service) {
	h := &handler{assetService: assetService}

	g := e.Group("/assets")
	g.POST("", h.importAsset)
	g.GET("/links", h.listLinks)
	g.DELETE("/links/:linkId", h.unlink)
	g.GET("/:id", h.retrieve)
	g.GET("/:id/content", h.content)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/links", h.createLink)
}
