package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neotrade.log")
	l := logrus.New()
	var stdout bytes.Buffer

	closer := apply(l, &Config{Level: "debug", Format: "json", File: path, MaxSizeMB: 1}, &stdout)
	l.WithField("component", "feed").Debug("tick")
	require.NoError(t, closer.Close())

	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &entry))
	assert.Equal(t, "tick", entry["msg"])
	assert.Equal(t, "feed", entry["component"])

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, stdout.String(), string(raw))
}

func TestApplyFallsBackToInfo(t *testing.T) {
	l := logrus.New()
	var stdout bytes.Buffer

	closer := apply(l, &Config{Level: "chatty"}, &stdout)
	defer closer.Close()

	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	_, isText := l.Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)
}
