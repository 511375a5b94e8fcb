package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/app"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/config"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/logging"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/search"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/termui"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/web"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	configPath := fs.String("config", getEnvOrDefault("TTT_CONFIG", ""), "Path to a YAML config file")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: %s [-config file] [serve|play]\n", os.Args[0])
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log.Logger = logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mode := fs.Arg(0)
	switch mode {
	case "", "serve":
		err = serve(ctx, cfg)
	case "play":
		err = play(ctx, cfg)
	default:
		fs.Usage()
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Str("mode", mode).Msg("exiting")
	}
}

func getEnvOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func newEngine(cfg config.Config) *search.Engine {
	return search.New(cfg.Human().Opponent(),
		search.WithYield(runtime.Gosched),
		search.WithLogger(log.Logger))
}

func serve(ctx context.Context, cfg config.Config) error {
	svc := app.NewService(
		app.WithEngine(newEngine(cfg)),
		app.WithFirstPlayer(app.FirstPlayer(cfg.FirstPlayer)),
		app.WithThinkDelay(cfg.ThinkDelay),
		app.WithSubscriberBuffer(cfg.SubscriberBuffer),
		app.WithLogger(log.Logger),
	)
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: web.NewServer(svc,
			web.WithLogger(log.Logger),
			web.WithHeartbeat(cfg.HeartbeatInterval)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func play(ctx context.Context, cfg config.Config) error {
	coin := func() bool { return true }
	switch cfg.FirstPlayer {
	case config.FirstComputer:
		coin = func() bool { return false }
	case config.FirstRandom:
		coin = func() bool { return rand.Intn(2) == 0 }
	}
	ui := termui.New(os.Stdout, newEngine(cfg),
		termui.WithCoin(coin),
		termui.WithLogger(log.Logger))
	return ui.Run(ctx, os.Stdin)
}
