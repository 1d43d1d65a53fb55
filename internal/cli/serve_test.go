package cli

import (
	"quiz_arena_backend/internal/app"
	"quiz_arena_backend/pkg/configwatcher"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serve hands configwatcher.WatchConfig to App.Run.
var _ app.ConfigWatcher = configwatcher.WatchConfig

func TestServeCommandFlags(t *testing.T) {
	dir := "configs"
	cmd := NewServeCmd(&dir)

	port := cmd.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "", port.DefValue)

	watch := cmd.Flags().Lookup("watch-config")
	require.NotNil(t, watch)
	assert.Equal(t, "true", watch.DefValue)

	require.NoError(t, cmd.Flags().Parse([]string{"--port", "9090", "--watch-config=false"}))
	assert.Equal(t, "9090", port.Value.String())
	assert.Equal(t, "false", watch.Value.String())
}

func TestServeFailsOnMissingSecret(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("JWT_SECRET", "")
	cmd := NewServeCmd(&dir)
	cmd.SetArgs([]string{"--watch-config=false"})
	assert.ErrorContains(t, cmd.Execute(), "jwt.secret is required")
}
