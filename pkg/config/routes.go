package config

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, cfg *Config) {
	configService := NewService(cfg)
	h := &handler{configService: configService}

	configGroup := e.Group("/config")
	configGroup.GET("", h.retrieve)
	configGroup.POST("", h.update)
}
