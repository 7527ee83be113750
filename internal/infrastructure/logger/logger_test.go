package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, "info", "json", "helpdesk-api", "test")
	require.NoError(t, err)

	log.Info().Str("component", "ingest").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "helpdesk-api", line["service"])
	assert.Equal(t, "test", line["environment"])
	assert.Equal(t, "ingest", line["component"])
	assert.Equal(t, "hello", line["message"])
}

func TestNewWithWriter_RejectsUnknownFormat(t *testing.T) {
	_, err := NewWithWriter(&bytes.Buffer{}, "info", "xml", "", "")
	assert.Error(t, err)

	_, err = NewWithWriter(&bytes.Buffer{}, "loud", "json", "", "")
	assert.Error(t, err)
}
