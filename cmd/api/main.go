package main

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
	"github.com/scrivanobooks/scrivano/pkg/assets"
	"github.com/scrivanobooks/scrivano/pkg/blobstore"
	"github.com/scrivanobooks/scrivano/pkg/books"
	"github.com/scrivanobooks/scrivano/pkg/chapters"
	"github.com/scrivanobooks/scrivano/pkg/characters"
	"github.com/scrivanobooks/scrivano/pkg/config"
	"github.com/scrivanobooks/scrivano/pkg/database"
	"github.com/scrivanobooks/scrivano/pkg/migrations"
	"github.com/scrivanobooks/scrivano/pkg/remote"
	"github.com/scrivanobooks/scrivano/pkg/server"
	"github.com/scrivanobooks/scrivano/pkg/syncengine"
	"github.com/scrivanobooks/scrivano/pkg/uploader"
	"github.com/scrivanobooks/scrivano/pkg/version"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting scrivano", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	store, err := blobstore.New(cfg.AssetsDir())
	if err != nil {
		log.Err(err).Fatal("asset store error")
	}
	log.Info("asset store initialized", logger.Data{"path": cfg.AssetsDir()})

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	remoteClient := remote.NewHTTPClient(cfg.UserConfig.RemoteURL, cfg.UserConfig.RemoteAPIToken, cfg.RemoteTimeout)

	assetService := assets.NewService(db, store, remoteClient, cfg.MaxUploadSizeBytes)
	bookService := books.NewService(db, assetService)
	chapterService := chapters.NewService(db, assetService)
	characterService := characters.NewService(db, assetService)

	upldr := uploader.New(cfg, db, store, remoteClient, assetService)
	engine := syncengine.New(cfg, db, remoteClient, upldr)

	srv, err := server.New(cfg, server.Services{
		Assets:     assetService,
		Books:      bookService,
		Chapters:   chapterService,
		Characters: characterService,
		SyncEngine: engine,
	})
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort)
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}

		log.Info("server started", logger.Data{"port": listener.Addr().(*net.TCPAddr).Port})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	upldr.Start()
	log.Info("uploader started")

	engine.Start()
	log.Info("sync engine started")

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	engine.Shutdown()
	log.Info("sync engine shutdown")

	upldr.Shutdown()
	log.Info("uploader shutdown")

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}
