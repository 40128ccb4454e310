package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbooks/ledgercore/internal/ledger"
	"github.com/finbooks/ledgercore/internal/platform/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ledger.CheckPermissive, cfg.CheckingStyle)
	assert.False(t, cfg.ForceChecking)
	assert.False(t, cfg.TrackPayees)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("JOURNAL_FILE", "books/main.journal")
	t.Setenv("CHECKING_STYLE", "error")
	t.Setenv("FORCE_CHECKING", "true")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "books/main.journal", cfg.JournalFile)
	assert.Equal(t, ledger.CheckError, cfg.CheckingStyle)
	assert.True(t, cfg.ForceChecking)
}

func TestLoadConfigRejectsUnknownStyle(t *testing.T) {
	t.Setenv("CHECKING_STYLE", "strict")

	_, err := config.LoadConfig()
	assert.Error(t, err)
}

func TestParseCheckingStyle(t *testing.T) {
	tests := []struct {
		input   string
		want    ledger.CheckingStyle
		wantErr bool
	}{
		{input: "", want: ledger.CheckPermissive},
		{input: "permissive", want: ledger.CheckPermissive},
		{input: "warning", want: ledger.CheckWarning},
		{input: "error", want: ledger.CheckError},
		{input: "fatal", wantErr: true},
	}
	for _, tc := range tests {
		got, err := config.ParseCheckingStyle(tc.input)
		if tc.wantErr {
			assert.Error(t, err, tc.input)
			continue
		}
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.want, got, tc.input)
	}
}
