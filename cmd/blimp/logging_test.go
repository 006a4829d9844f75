package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagCommand(t *testing.T, args ...string) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("log-level", "", "")
	cmd.Flags().String("config", "", "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestConfigureLogger(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "blimp.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log_level: warn\n"), 0o644))

	tests := []struct {
		name     string
		args     []string
		expected logrus.Level
		wantErr  bool
	}{
		{name: "silent by default", expected: logrus.PanicLevel},
		{name: "flag", args: []string{"--log-level", "debug"}, expected: logrus.DebugLevel},
		{name: "config file", args: []string{"--config", configPath}, expected: logrus.WarnLevel},
		{name: "flag wins over config", args: []string{"--config", configPath, "--log-level", "error"}, expected: logrus.ErrorLevel},
		{name: "invalid level", args: []string{"--log-level", "loud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newFlagCommand(t, tt.args...)
			cfg, logger, err := setup(cmd)
			if tt.wantErr {
				assert.ErrorContains(t, err, "invalid log level")
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			assert.Equal(t, tt.expected, logger.GetLevel())
		})
	}
}

func TestSetupRejectsBadConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "blimp.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("event_buffer: 0\n"), 0o644))

	_, _, err := setup(newFlagCommand(t, "--config", configPath))
	assert.ErrorContains(t, err, "event_buffer")
}
