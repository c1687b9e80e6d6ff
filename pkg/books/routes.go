package books

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, bookService *Service) {
	h := &handler{bookService: bookService}

	g := e.Group("/books")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/versions", h.createVersion)
	g.GET("/:id/versions", h.listVersions)

	v := e.Group("/versions")
	v.PATCH("/:versionId", h.updateVersion)
	v.DELETE("/:versionId", h.deleteVersion)
}
