package logx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, Config{Debug: false})

	log.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Info().Str("session_id", "s1").Msg("visible")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["message"])
	assert.Equal(t, "s1", entry["session_id"])
	assert.Contains(t, entry, "caller")

	buf.Reset()
	InitWriter(&buf, Config{Debug: true})
	log.Debug().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
