package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notecards/internal/config"
	"notecards/internal/speech"
)

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short", 10))
	assert.Equal(t, "a b c", preview("a\n b\t c", 10))
	assert.Equal(t, "abcd…", preview("abcdefgh", 5))
}

func TestRecognizerFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/composer/x/record", nil)

	rec := recognizerFor(&config.Config{Speech: config.SpeechConfig{Provider: "none"}})(req)
	assert.False(t, rec.Available())

	rec = recognizerFor(&config.Config{Speech: config.SpeechConfig{Provider: "fake"}})(req)
	assert.IsType(t, &speech.Fake{}, rec)

	rec = recognizerFor(&config.Config{Speech: config.SpeechConfig{Provider: "browser"}})(req)
	assert.False(t, rec.Available())
	req.Header.Set("X-Speech-Supported", "true")
	assert.True(t, recognizerFor(&config.Config{Speech: config.SpeechConfig{Provider: "browser"}})(req).Available())
}

func TestOpenMemoryStore(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, closeFn, err := openStore(t.Context(), &config.Config{Store: "memory"}, logger)
	require.NoError(t, err)
	defer closeFn()
	n, err := store.Count(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEmbeddedAssets(t *testing.T) {
	for _, name := range []string{"static/app.js", "static/app.css"} {
		_, err := staticFS.ReadFile(name)
		assert.NoError(t, err, name)
	}
}

func TestAppScriptOrdersSpeechPosts(t *testing.T) {
	js, err := staticFS.ReadFile("static/app.js")
	require.NoError(t, err)
	assert.Contains(t, string(js), "seq: n")
	assert.Contains(t, string(js), "data-stop-capture")
}

func TestSweepInterval(t *testing.T) {
	assert.Equal(t, 15*time.Minute, sweepInterval(30*time.Minute))
	assert.Equal(t, time.Second, sweepInterval(time.Nanosecond))
	assert.Equal(t, time.Second, sweepInterval(0))
}
