package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Traslados-api/pkg/logger"
)

func TestNew_ServiceAndComponentFields(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "info", Service: "traslados-api", Output: &buf})

	log.Component("transfer").Info().Int64("transfer_id", 7).Msg("traslado despachado")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "traslados-api", line["service"])
	assert.Equal(t, "transfer", line["component"])
	assert.Equal(t, "info", line["level"])
	assert.EqualValues(t, 7, line["transfer_id"])
}

func TestNew_Level(t *testing.T) {
	cases := map[string]bool{
		"debug": true,
		"WARN":  false,
		"":      false,
		"nope":  false,
	}
	for level, debugVisible := range cases {
		var buf bytes.Buffer
		log := logger.New(logger.Config{Env: "test", Level: level, Output: &buf})
		log.Debug().Msg("detalle")
		assert.Equal(t, debugVisible, buf.Len() > 0, "nivel %q", level)
	}
}
