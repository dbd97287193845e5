package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "3306", cfg.DBPort)
	assert.True(t, cfg.LedgerTx)
	assert.Equal(t, "100", cfg.InitialBalance)
	assert.Equal(t, "root:@tcp(127.0.0.1:3306)/social?parseTime=true&charset=utf8mb4", cfg.DSN())
}

func TestLoadConfig_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_RejectsBadBalance(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	for _, v := range []string{"abc", "-5"} {
		t.Setenv("WALLET_INITIAL_BALANCE", v)
		_, err := LoadConfig()
		assert.Error(t, err, v)
	}
}

func TestStartingBalance(t *testing.T) {
	cfg := &Config{InitialBalance: "12.5"}
	d, err := cfg.StartingBalance()
	require.NoError(t, err)
	assert.Equal(t, "12.5", d.String())
}
