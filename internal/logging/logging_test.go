package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zerolog.TraceLevel, ParseLevel("Trace"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestNewWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "dronesim.log")

	log, closeLog, err := New(Options{Level: "WARN", File: path, Console: &console})
	require.NoError(t, err)

	log.Info().Msg("hidden")
	log.Warn().Str("tile", "3,4").Msg("tile load failed")
	require.NoError(t, closeLog())

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "tile load failed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tile load failed")
	assert.Contains(t, string(data), "tile=3,4")
}
