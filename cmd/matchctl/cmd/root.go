package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ledger-matching-backend/internal/app"
	"ledger-matching-backend/internal/config"
	"ledger-matching-backend/internal/logger"
)

var (
	cfgFile string
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "matchctl",
	Short: "Match bank transactions against ledger entries",
	Long: `matchctl runs the matching engine against the service database.

Examples:
  matchctl suggest --transaction-id 6f1c... --limit 5
  matchctl commit --transaction-id 6f1c... --ledger-entry-id 9a2b... --actor alice
  matchctl automatch --limit 100
  matchctl repair
  matchctl migrate`,
	Version:       getVersionString(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (optional)")
	rootCmd.PersistentFlags().String("dsn", "", "database DSN (overrides config and DATABASE_URL)")
	rootCmd.PersistentFlags().String("actor", "", "actor recorded in the audit log (default \"system\")")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	_ = viper.BindPFlag("dsn", rootCmd.PersistentFlags().Lookup("dsn"))
	_ = viper.BindPFlag("actor", rootCmd.PersistentFlags().Lookup("actor"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads ENV variables prefixed with MATCHCTL.
func initConfig() {
	viper.SetEnvPrefix("MATCHCTL")
	viper.AutomaticEnv()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}

// loadConfig resolves the service configuration, then applies CLI
// overrides.
func loadConfig() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, errors.Wrap(err, "load config")
	}

	if dsn := viper.GetString("dsn"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if level := viper.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	// CLI output goes to stdout, so logs stay quiet unless asked for
	if viper.GetString("log-level") == "" && os.Getenv("LOG_LEVEL") == "" {
		cfg.Logging.Level = "warn"
	}
	return cfg, nil
}

func openApp() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	// stdout carries the JSON output
	lg := logger.NewTo(cfg.Logging, os.Stderr)

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	return app.New(db, cfg.Matching, lg), nil
}

func actorFlag() string {
	return viper.GetString("actor")
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
