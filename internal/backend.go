package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gpufanctl/gpufanctl/internal/api"
	"github.com/gpufanctl/gpufanctl/internal/configuration"
	"github.com/gpufanctl/gpufanctl/internal/control"
	"github.com/gpufanctl/gpufanctl/internal/nvidia"
	"github.com/gpufanctl/gpufanctl/internal/persistence"
	"github.com/gpufanctl/gpufanctl/internal/statistics"
	"github.com/gpufanctl/gpufanctl/internal/ui"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RunDaemon() {
	config := configuration.CurrentConfig

	var pers persistence.Persistence
	if config.DbPath != "" {
		pers = persistence.NewPersistence(config.DbPath)
		if err := pers.Init(); err != nil {
			ui.Warning("Cannot initialize measurement db at %s, recording disabled: %v", config.DbPath, err)
			pers = nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	var g run.Group
	{
		// === control loop
		gateway := nvidia.NewGateway(config.CommandTimeout)
		loop := control.NewLoop(gateway, config, pers)

		g.Add(func() error {
			err := loop.Run(ctx)
			ui.Info("Control loop stopped.")
			return err
		}, func(err error) {
			if err != nil {
				ui.Warning("Error running control loop: %v", err)
			}
		})
	}
	{
		enabled := config.Statistics.Enabled
		if enabled {
			statistics.Register(statistics.NewControllerCollector())

			// === Prometheus Exporter
			g.Add(func() error {
				addr := fmt.Sprintf(":%d", config.Statistics.Port)
				handler := promhttp.Handler()
				mux := http.NewServeMux()
				mux.Handle("/metrics", handler)
				server := &http.Server{Addr: addr, Handler: mux}

				go func() {
					<-ctx.Done()
					ui.Info("Stopping statistics server...")
					timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer timeoutCancel()
					_ = server.Shutdown(timeoutCtx)
				}()

				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					ui.Error("Cannot start prometheus metrics endpoint (%s)", err.Error())
					return err
				}
				return nil
			}, func(err error) {
				if err != nil {
					ui.Warning("Error stopping statistics server: %v", err)
				} else {
					ui.Info("Statistics server stopped.")
				}
			})
		}
	}
	{
		enabled := config.Api.Enabled
		if enabled {
			// === REST api
			g.Add(func() error {
				server := api.CreateRestService(pers)
				addr := fmt.Sprintf(":%d", config.Api.Port)

				go func() {
					<-ctx.Done()
					ui.Info("Stopping api server...")
					timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer timeoutCancel()
					_ = server.Shutdown(timeoutCtx)
				}()

				if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
					ui.Error("Cannot start api endpoint (%s)", err.Error())
					return err
				}
				return nil
			}, func(err error) {
				if err != nil {
					ui.Warning("Error stopping api server: %v", err)
				} else {
					ui.Info("Api server stopped.")
				}
			})
		}
	}
	{
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		g.Add(func() error {
			<-sig
			ui.Info("Received SIGTERM signal, exiting...")
			return nil
		}, func(err error) {
			defer close(sig)
			cancel()
		})
	}

	if err := g.Run(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	} else {
		ui.Info("Done.")
		os.Exit(0)
	}
}
