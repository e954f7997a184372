package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"

	"github.com/flexnote/compute-broker/compute"
	"github.com/flexnote/compute-broker/internal/config"
	"github.com/flexnote/compute-broker/provider"
	"github.com/flexnote/compute-broker/provider/providerfake"
	"github.com/flexnote/compute-broker/server"
	"github.com/flexnote/compute-broker/sessions"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(c config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	displayAppname(c.GetAppName())

	gateway := newGateway(c)
	repo := sessions.NewInMemoryRepo(sessions.WithExpireHook(compute.ReleaseExpiredInstance(gateway)))
	repo.StartReaper(c.GetReapInterval())

	svc := compute.NewService(repo, gateway, compute.WithSessionTTL(c.GetSessionTTL()))
	srv := &http.Server{
		Addr:              c.GetAddr(),
		Handler:           server.New(c, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(srv) }()

	select {
	case err := <-serveErr:
		returnError = err
	case <-waitForStopSignal():
		returnError = shutdown(srv)
	}

	// The reaper is joined only after the HTTP server has drained
	_ = repo.Close()
	log.Info().Msg("Server stopped")
	return returnError
}

// newGateway picks the in-process provider in mock mode and the remote
// compute API otherwise.
func newGateway(c config.Config) provider.Gateway {
	if c.IsMockMode() {
		log.Info().Msg("Running in MOCK MODE - using in-process compute provider")
		return providerfake.NewFakeGateway()
	}
	log.Info().Str("provider_url", c.GetProviderURL()).Msg("Running in PRODUCTION MODE")
	return provider.NewClientFromConfig(c)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
