// Shared test server setup, which simplifies all API tests.

package testutil

import (
	"testing"

	"github.com/jonathanprocter/insight-atlas-server/internal/api"
	"github.com/jonathanprocter/insight-atlas-server/internal/config"
	"github.com/jonathanprocter/insight-atlas-server/internal/core"
	"github.com/jonathanprocter/insight-atlas-server/internal/providers/speech"
	"github.com/jonathanprocter/insight-atlas-server/internal/providers/text"
)

// SetupTestApp builds a core.App around an in-memory database and the
// given provider mocks. Nil clients get quiet defaults.
func SetupTestApp(t *testing.T, textClient text.Client, speechClient speech.Client) *core.App {
	t.Helper()
	db := SetupTestDB(t)

	if textClient == nil {
		textClient = &text.MockClient{Chunks: []string{"Generated ", "guide ", "content."}}
	}
	if speechClient == nil {
		speechClient = &speech.MockClient{}
	}

	cfg := &config.Config{}
	cfg.Audio.Path = t.TempDir()
	cfg.Provider.TextModel = "test-model"
	cfg.Generation.MaxAudioAttempts = 3

	app, err := core.NewWithComponents(core.Components{
		Config: cfg,
		DB:     db,
		Text:   textClient,
		Speech: speechClient,
	}, "test")
	if err != nil {
		t.Fatalf("Failed to build test app: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

// SetupTestServer initializes a full core.App and api.Server for
// integration testing.
func SetupTestServer(t *testing.T, textClient text.Client, speechClient speech.Client) (*api.Server, *core.App) {
	t.Helper()
	app := SetupTestApp(t, textClient, speechClient)
	return api.NewServer(app), app
}
