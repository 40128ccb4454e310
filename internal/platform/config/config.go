package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/finbooks/ledgercore/internal/ledger"
)

// Config holds process configuration for the journal checker.
type Config struct {
	JournalFile   string
	RulesFile     string
	CheckingStyle ledger.CheckingStyle
	ForceChecking bool
	TrackPayees   bool
	LogLevel      string
	LogJSON       bool
}

// LoadConfig loads configuration from environment variables and a .env file
// if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("JOURNAL_FILE", "")
	viper.SetDefault("RULES_FILE", "")
	viper.SetDefault("CHECKING_STYLE", "permissive")
	viper.SetDefault("FORCE_CHECKING", false)
	viper.SetDefault("TRACK_PAYEES", false)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_JSON", false)

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.JournalFile = viper.GetString("JOURNAL_FILE")
	cfg.RulesFile = viper.GetString("RULES_FILE")
	cfg.ForceChecking = viper.GetBool("FORCE_CHECKING")
	cfg.TrackPayees = viper.GetBool("TRACK_PAYEES")
	cfg.LogLevel = viper.GetString("LOG_LEVEL")
	cfg.LogJSON = viper.GetBool("LOG_JSON")

	style := viper.GetString("CHECKING_STYLE")
	parsed, err := ParseCheckingStyle(style)
	if err != nil {
		return nil, err
	}
	cfg.CheckingStyle = parsed

	if cfg.JournalFile == "" {
		log.Println("Warning: JOURNAL_FILE environment variable not set.")
	}

	return cfg, nil
}

// ParseCheckingStyle maps the configured style name to the engine's value.
func ParseCheckingStyle(style string) (ledger.CheckingStyle, error) {
	switch style {
	case "", "permissive":
		return ledger.CheckPermissive, nil
	case "warning":
		return ledger.CheckWarning, nil
	case "error":
		return ledger.CheckError, nil
	default:
		return ledger.CheckPermissive, fmt.Errorf("unknown checking style %q (want permissive, warning or error)", style)
	}
}
