package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers

	dig_container "github.com/trezcool/masomo-emis/apps/api/di/dig"
	"github.com/trezcool/masomo-emis/core"
	"github.com/trezcool/masomo-emis/core/enrollment"
)

func main() {
	c := dig_container.New()
	must(c.Invoke(run))
}

func run(app dig_container.App) {
	conf, apiLogger := app.Conf, app.Logger

	// =========================================================================
	// Initialize App

	apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

	core.InitValidators(app.Validate, app.Translator)
	enrollment.InitValidators(app.Validate, app.Translator)

	if app.DB != nil {
		defer func() {
			if err := app.DB.Close(); err != nil {
				app.DBLogger.Error("Failed to close", err)
			}
		}()
	}
	if app.Redis != nil {
		defer func() {
			if err := app.Redis.Close(); err != nil {
				apiLogger.Error("Failed to close redis", err)
			}
		}()
	}
	defer apiLogger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("enrollment_backend").Set(conf.Enrollment.Backend)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			apiLogger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Wizards Sweeper

	sweeper, err := newSweeper(conf.Enrollment.SweepSchedule, app.Wizards, apiLogger)
	if err != nil {
		apiLogger.Fatal(fmt.Sprintf("scheduling sweeper: %v", err), err)
	}
	sweeper.Start()
	defer func() { <-sweeper.Stop().Done() }()

	// =========================================================================
	// Start API Service

	server := app.Server
	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		apiLogger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err := server.Shutdown(ctx); err != nil {
			apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				apiLogger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
