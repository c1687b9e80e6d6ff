package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/scrivanobooks/scrivano/pkg/assets"
	"github.com/scrivanobooks/scrivano/pkg/binder"
	"github.com/scrivanobooks/scrivano/pkg/books"
	"github.com/scrivanobooks/scrivano/pkg/chapters"
	"github.com/scrivanobooks/scrivano/pkg/characters"
	"github.com/scrivanobooks/scrivano/pkg/config"
	"github.com/scrivanobooks/scrivano/pkg/errcodes"
	"github.com/scrivanobooks/scrivano/pkg/syncengine"
)

// Services are the constructed application services the server exposes.
type Services struct {
	Assets     *assets.Service
	Books      *books.Service
	Chapters   *chapters.Service
	Characters *characters.Service
	SyncEngine *syncengine.Engine
}

func New(cfg *config.Config, svcs Services) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	assets.RegisterRoutes(e, svcs.Assets)
	books.RegisterRoutes(e, svcs.Books)
	chapters.RegisterRoutes(e, svcs.Chapters)
	characters.RegisterRoutes(e, svcs.Characters)
	syncengine.RegisterRoutes(e, svcs.SyncEngine)
	config.RegisterRoutes(e, cfg)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
