package command

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Qfusion/qfusion-sub007/internal/config"
)

func TestRegistry(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.Register(NewVersionCommand("1.0.0", nil))
	r.Register(NewConfigCommand(config.NewConfig(), ""))
	r.Register(NewHelpCommand(r))

	assert.Equal(t, []string{"config", "help", "version"}, r.List())

	cmd, err := r.Get("version")
	require.NoError(t, err)
	assert.Equal(t, "version", cmd.Name())

	_, err = r.Get("nonexistent")
	assert.EqualError(t, err, "command not found: nonexistent")
}

func TestHelpCommand(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.Register(NewVersionCommand("1.0.0", nil))
	r.Register(NewSimulateCommand(config.NewConfig()))
	help := NewHelpCommand(r)
	r.Register(help)

	t.Run("general help", func(t *testing.T) {
		t.Parallel()
		var stdout, stderr bytes.Buffer
		require.NoError(t, help.Execute(context.Background(), nil, &stdout, &stderr))
		for _, part := range []string{"botsim", "Usage: botsim <command>", "Available commands:", "simulate", "Run a YAML scenario"} {
			assert.Contains(t, stdout.String(), part)
		}
	})

	t.Run("command help lists flags", func(t *testing.T) {
		t.Parallel()
		var stdout, stderr bytes.Buffer
		require.NoError(t, help.Execute(context.Background(), []string{"simulate"}, &stdout, &stderr))
		assert.Contains(t, stdout.String(), "Command: simulate")
		assert.Contains(t, stdout.String(), "Flags:")
		assert.Contains(t, stdout.String(), "-report-every")
	})

	t.Run("unknown command", func(t *testing.T) {
		t.Parallel()
		var stdout, stderr bytes.Buffer
		require.Error(t, help.Execute(context.Background(), []string{"bogus"}, &stdout, &stderr))
		assert.Contains(t, stderr.String(), "Unknown command: bogus")
	})
}
