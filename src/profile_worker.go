package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ryansname/visimos/src/config"
	"github.com/ryansname/visimos/src/profile"
)

// openProfile builds the configured store. A store that cannot be opened
// degrades to an unavailable manager rather than failing startup.
func openProfile(cfg *config.Config) (*profile.Manager, func()) {
	logger := componentLogger("profile")
	noop := func() {}

	switch cfg.Profile.Backend {
	case config.BackendMemory:
		return profile.NewManager(profile.NewMemoryStore(), logger), noop

	case config.BackendSQLite:
		store, err := profile.NewSQLiteStore(cfg.Profile.Path, cfg.Profile.Key)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.Profile.Path).Msg("profile database unavailable, memory will not persist")
			return profile.NewManager(nil, logger), noop
		}
		return profile.NewManager(store, logger), func() { _ = store.Close() }

	default:
		return profile.NewManager(profile.NewFileStore(cfg.Profile.Path, cfg.Profile.Key), logger), noop
	}
}

// profileWorker performs profile writes off the engine goroutine.
func profileWorker(ctx context.Context, manager *profile.Manager, requests <-chan profileRequest, logger zerolog.Logger) {
	for {
		select {
		case req := <-requests:
			switch req.Op {
			case profileSave:
				ok := manager.Save(req.Profile)
				profileWrites.WithLabelValues("save", resultLabel(ok)).Inc()
				if ok {
					logger.Info().Int("visits", req.Profile.Visits).Msgf("Memory saved (%d visits)", req.Profile.Visits)
				}
			case profileClear:
				ok := manager.Clear()
				profileWrites.WithLabelValues("clear", resultLabel(ok)).Inc()
			}

		case <-ctx.Done():
			return
		}
	}
}
