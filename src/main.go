package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ryansname/visimos/src/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "visimos",
	Short: "An emotional orb that reacts to touch, sound and memory",
	RunE:  runOrb,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the orb (default)",
	RunE:  runOrb,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the stored visit profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		setupLogging(cfg, false)

		manager, closeStore := openProfile(cfg)
		defer closeStore()
		if !manager.Clear() {
			return fmt.Errorf("profile could not be cleared")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Memory reset.")
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Print the stored visit profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		setupLogging(cfg, false)

		manager, closeStore := openProfile(cfg)
		defer closeStore()
		p, found := manager.Load()

		out, err := json.MarshalIndent(map[string]any{"found": found, "profile": p}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: ./visimos.yaml)")
	rootCmd.AddCommand(runCmd, resetCmd, profileCmd)
}

func loadConfig() (*config.Config, error) {
	if err := config.LoadDotenv(); err != nil {
		// Not fatal: settings may come from the environment or a config file
		log.Debug().Err(err).Msg("no .env loaded")
	}
	return config.Load(configPath)
}

func runOrb(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg, cfg.Render.Mode == config.ModeTerminal)

	log.Info().Str("mode", cfg.Render.Mode).Msg("Starting visimos...")

	// Create context for lifecycle management
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := startWorkers(ctx, cancel, cfg); err != nil {
		return err
	}

	// Wait for interrupt signal or context cancellation (from panic or quit)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("Shutting down...")
	case <-ctx.Done():
		log.Info().Msg("Shutting down...")
	}
	cancel()

	// Give workers a moment to release the terminal, audio and broker
	time.Sleep(250 * time.Millisecond)
	return nil
}

// SafeGo launches a goroutine with panic recovery and retry logic.
// On panic, retries with exponential backoff (max 10 retries).
// Retry count resets if worker ran for 2+ minutes before failing.
// After exhausting retries, cancels context to trigger shutdown.
func SafeGo(
	ctx context.Context,
	cancel context.CancelFunc,
	name string,
	fn func(ctx context.Context),
) {
	const maxRetries = 10
	const maxDelay = 10 * time.Minute
	const resetAfter = 2 * time.Minute

	go func() {
		retries := 0
		delay := time.Second

		for {
			startTime := time.Now()
			var panicValue any

			func() {
				defer func() {
					panicValue = recover()
				}()
				fn(ctx)
			}()

			// Returned normally: context cancelled or the worker finished
			if panicValue == nil {
				return
			}

			if time.Since(startTime) >= resetAfter {
				retries = 0
				delay = time.Second
			}

			retries++
			workerPanics.WithLabelValues(name).Inc()
			log.Error().Str("worker", name).Int("attempt", retries).Interface("panic", panicValue).Msg("worker panicked")

			if retries >= maxRetries {
				log.Error().Str("worker", name).Int("retries", maxRetries).Msg("worker failed too often, shutting down")
				cancel()
				return
			}

			log.Warn().Str("worker", name).Dur("delay", delay).Msg("worker will retry")
			select {
			case <-time.After(delay):
				delay = min(delay*2, maxDelay)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
