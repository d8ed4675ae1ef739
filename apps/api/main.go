package main

import (
	"context"
	"expvar"
	"fmt"
	"io"
	"log"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on the default mux

	"github.com/pkg/errors"
	"go.uber.org/dig"

	dig_container "github.com/trezcool/mathinsight/apps/api/di/dig"
	echoapi "github.com/trezcool/mathinsight/apps/api/echo"
	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/user"
	metricsvc "github.com/trezcool/mathinsight/services/metrics"
)

type app struct {
	dig.In

	Conf     *core.Config
	Logger   core.Logger
	DBLogger core.Logger `name:"dbLogger"`
	DB       io.Closer
	Metrics  *metricsvc.Metrics
	Shutdown dig_container.Shutdown
	Server   echoapi.Server
}

func main() {
	c := dig_container.New()
	if err := c.Invoke(run); err != nil {
		log.Fatal(errors.Wrap(err, "starting application").Error())
	}
}

func run(a app) {
	conf, logger := a.Conf, a.Logger

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

	core.ParseEmailTemplates(logger, !conf.Debug)

	user.LoadCommonPasswords(logger)

	defer func() {
		if err := a.DB.Close(); err != nil {
			a.DBLogger.Fatal("Failed to close", err)
		}
	}()
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus exposition of the API metrics.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.DefaultServeMux.Handle("/metrics", a.Metrics.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address()))
		serverErrors <- a.Server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal(fmt.Sprintf("server error: %v", err), err)
		}

	case sig := <-a.Shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err := a.Server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = a.Server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
