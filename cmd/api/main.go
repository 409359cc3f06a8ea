package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"

	"github.com/foliarr/foliarr/pkg/config"
	"github.com/foliarr/foliarr/pkg/database"
	"github.com/foliarr/foliarr/pkg/migrations"
	"github.com/foliarr/foliarr/pkg/server"
	"github.com/foliarr/foliarr/pkg/version"
	"github.com/foliarr/foliarr/pkg/worker"
	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting foliarr", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	// Only one scheduler instance may run against a store: a second process
	// racing the rescan and import jobs would corrupt location pointers.
	lock := flock.New(filepath.Join(cfg.ConfigDirectory, "foliarr.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Err(err).Fatal("instance lock error")
	}
	if !locked {
		log.Err(errors.New("config directory lock held")).Fatal("another instance is already running")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Err(err).Error("instance unlock error")
		}
	}()

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

	svcs := server.NewServices(cfg, db)

	wrkr := worker.New(svcs.Config)
	wrkr.Register("import", svcs.Downloads.ImportCompleted)
	wrkr.Register("rescan", worker.NewRescan(db, svcs.Activities).Run)
	wrkr.Register("reimport", worker.NewReimport(db, svcs.Config, svcs.Activities).Run)

	srv, err := server.New(cfg, db, svcs, wrkr)
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

	wrkr.Start()
	log.Info("worker started")

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	wrkr.Shutdown()
	log.Info("worker shutdown")

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}
