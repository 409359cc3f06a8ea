package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/foliarr/foliarr/pkg/activities"
	"github.com/foliarr/foliarr/pkg/authors"
	"github.com/foliarr/foliarr/pkg/binder"
	"github.com/foliarr/foliarr/pkg/books"
	"github.com/foliarr/foliarr/pkg/config"
	"github.com/foliarr/foliarr/pkg/downloader"
	"github.com/foliarr/foliarr/pkg/downloads"
	"github.com/foliarr/foliarr/pkg/errcodes"
	"github.com/foliarr/foliarr/pkg/importer"
	"github.com/foliarr/foliarr/pkg/indexer"
	"github.com/foliarr/foliarr/pkg/jobs"
	"github.com/foliarr/foliarr/pkg/scrape"
	"github.com/foliarr/foliarr/pkg/series"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

// Services bundles one instance of every domain service so the API and the
// worker loops act on the same configuration snapshot mechanism.
type Services struct {
	Config     *config.Service
	Activities *activities.Service
	Authors    *authors.Service
	Series     *series.Service
	Books      *books.Service
	Importer   *importer.Service
	Downloads  *downloads.Service
}

func NewServices(cfg *config.Config, db *bun.DB) *Services {
	configService := config.NewService(cfg)
	scraper := scrape.NewClient(configService)
	idx := indexer.NewNewznab(configService)
	dl := downloader.NewSABnzbd(configService)

	activityService := activities.NewService(db)
	authorService := authors.NewService(db, configService, scraper)
	seriesService := series.NewService(db, configService, authorService, scraper)
	bookService := books.NewService(db, configService)
	importService := importer.NewService(db, configService, activityService)
	downloadService := downloads.NewService(db, configService, activityService, bookService, importService, idx, dl)

	return &Services{
		Config:     configService,
		Activities: activityService,
		Authors:    authorService,
		Series:     seriesService,
		Books:      bookService,
		Importer:   importService,
		Downloads:  downloadService,
	}
}

func New(cfg *config.Config, db *bun.DB, svcs *Services, restarter config.JobRestarter) (*http.Server, error) {
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

	activities.RegisterRoutes(e, db)
	authors.RegisterRoutes(e, svcs.Authors)
	series.RegisterRoutes(e, svcs.Series)
	books.RegisterRoutes(e, svcs.Books, svcs.Importer)
	downloads.RegisterRoutes(e, svcs.Downloads, svcs.Books, svcs.Activities)
	config.RegisterRoutes(e, svcs.Config, restarter)
	jobs.RegisterRoutes(e, restarter)

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
