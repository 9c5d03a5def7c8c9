package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"authchat/internal/chat"
	"authchat/internal/config"
	"authchat/internal/errutil"
	"authchat/internal/mail"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "authchat", cmd.Use)
	for _, name := range []string{"serve", "migrate"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("env-file"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("port"))
}

func newTestCmd(t *testing.T, args ...string) (*cobra.Command, *config.Flags) {
	t.Helper()
	flags := &config.Flags{}
	cmd := &cobra.Command{Use: "test"}
	flags.Register(cmd.Flags())
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, flags
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("AUTHCHAT_TEST_UNUSED=1\n"), 0o600))

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "9000")

	cmd, flags := newTestCmd(t, "--env-file", envFile, "--port", "9100")
	cfg, err := loadConfig(cmd, flags, true)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing explicit env file", func(t *testing.T) {
		cmd, flags := newTestCmd(t, "--env-file", filepath.Join(t.TempDir(), "missing.env"))
		_, err := loadConfig(cmd, flags, false)
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	})

	t.Run("validation applies to serve only", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")

		cmd, flags := newTestCmd(t, "--env-file", writeEnv(t, ""))
		_, err := loadConfig(cmd, flags, true)
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")

		_, err = loadConfig(cmd, flags, false)
		assert.NoError(t, err)
	})
}

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewMailer(t *testing.T) {
	m, err := newMailer(config.SMTPConfig{Timeout: time.Second}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, mail.Disabled{}, m)

	m, err = newMailer(config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com", Timeout: time.Second}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &mail.SMTPSender{}, m)
}

func TestNewGenerator_WithoutKey(t *testing.T) {
	gen := newGenerator(context.Background(), config.ChatConfig{}, zap.NewNop())
	assert.IsType(t, chat.Unavailable{}, gen)
}
