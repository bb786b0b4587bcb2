package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/hdsim/internal/config"
	"codeberg.org/mutker/hdsim/internal/dispatch"
	"codeberg.org/mutker/hdsim/internal/errors"
	"codeberg.org/mutker/hdsim/internal/fault"
	"codeberg.org/mutker/hdsim/internal/hds"
	"codeberg.org/mutker/hdsim/internal/journal"
	"codeberg.org/mutker/hdsim/internal/logger"
	"codeberg.org/mutker/hdsim/internal/pid"
	"codeberg.org/mutker/hdsim/internal/relay"
	"github.com/spf13/pflag"
)

const shutdownGrace = time.Second

var cfg config.Provider

func main() {
	var err error
	cfg, err = config.Load()
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.GetLogLevel(), logger.IsService())
	logger.Debug().
		Str("base_url", cfg.GetBaseURL()).
		Str("app_name", cfg.GetAppName()).
		Msg("Config loaded")

	lockPath, err := pid.Write(cfg.GetLockDir(), cfg.GetAppName())
	if err != nil {
		logger.Fatal().Err(err).Str("app_name", cfg.GetAppName()).Msg("Failed to acquire instance lock")
	}

	client, err := hds.New(cfg.GetBaseURL(), hds.WithTimeout(cfg.GetTimeout()))
	if err != nil {
		removeLock(lockPath)
		logger.Fatal().Err(err).Msg("Failed to create HDS client")
	}

	rec, err := journal.NewService(journalConfig(cfg), logger.Default())
	if err != nil {
		removeLock(lockPath)
		logger.Fatal().Err(err).Msg("Failed to open journal")
	}

	r := relay.New()
	disp := dispatch.New(client, fault.NewBuilder(cfg.GetAppName()), r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	sh := newShell(os.Stdout, disp, rec, r.Notify(), cfg.GetTick())
	sh.color = !logger.IsService()

	sh.print(relay.TagInfo, cfg.GetAppName()+" starting…")
	if _, err := disp.Register(ctx, cfg.GetAppName(), cfg.GetAppVersion()); err != nil {
		logger.Error().Err(err).Msg("Failed to start registration")
	}

	var auto <-chan fault.Category
	if limiter := autoLimiter(cfg); limiter != nil {
		logger.Info().
			Float64("rate", cfg.GetAutoRate()).
			Int("burst", cfg.GetAutoBurst()).
			Msg("Automatic fault mode activated")
		auto = autoFire(ctx, limiter, randomCategory)
	}

	if err := sh.run(ctx, readLines(os.Stdin), auto); err != nil {
		logger.Error().Err(err).Msg("Error in main loop")
	}
	cancel()

	cleanup(sh, disp, rec, lockPath)
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

// readLines feeds stdin to the shell one line at a time. The channel closes
// at end of input.
func readLines(f *os.File) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			logger.Debug().Err(err).Msg("Stopped reading commands")
		}
	}()
	return lines
}

// cleanup waits for outstanding reports, renders their outcomes and
// releases the journal and the instance lock.
func cleanup(sh *shell, disp *dispatch.Dispatcher, rec journal.Recorder, lockPath string) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetTimeout()+shutdownGrace)
	defer cancel()

	if n := disp.InFlight(); n > 0 {
		logger.Info().Int("in_flight", n).Msg("Waiting for outstanding reports")
	}
	if err := disp.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("Dispatcher shutdown incomplete")
	}
	sh.drain(ctx)

	if err := rec.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close journal")
	}
	removeLock(lockPath)

	logger.Info().Msg("Exiting...")
}

func removeLock(path string) {
	if err := pid.Remove(path); err != nil {
		logger.Error().Err(err).Msg("Failed to remove instance lock")
	}
}
