package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ledgerlink-dev/ledgerlink/internal/config"
	"github.com/ledgerlink-dev/ledgerlink/internal/logging"
	"github.com/ledgerlink-dev/ledgerlink/internal/store/sqlite"
)

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.Logging.Level)
}

// env bundles what every command needs: config, store, logger.
type env struct {
	cfg *config.Config
	st  *sqlite.Store
	log zerolog.Logger
}

func (e *env) close() {
	if e.st != nil {
		_ = e.st.Close()
	}
}

// loadEnv reads the config named by the --config flag and opens the store.
func loadEnv(cmd *cobra.Command) (*env, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s (run 'ledgerlink init' first?): %w", path, err)
	}

	st, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	return &env{cfg: cfg, st: st, log: newLogger(cfg)}, nil
}
