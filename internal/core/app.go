// Package core wires the application together: configuration, database,
// websocket hub, provider clients, the generation coordinator, and the
// job manager. Everything is constructed explicitly here; there is no
// package-level shared state.
package core

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/jonathanprocter/insight-atlas-server/internal/config"
	"github.com/jonathanprocter/insight-atlas-server/internal/db"
	"github.com/jonathanprocter/insight-atlas-server/internal/generator"
	"github.com/jonathanprocter/insight-atlas-server/internal/jobs"
	"github.com/jonathanprocter/insight-atlas-server/internal/models"
	"github.com/jonathanprocter/insight-atlas-server/internal/providers/speech"
	"github.com/jonathanprocter/insight-atlas-server/internal/providers/text"
	"github.com/jonathanprocter/insight-atlas-server/internal/recovery"
	"github.com/jonathanprocter/insight-atlas-server/internal/store"
	"github.com/jonathanprocter/insight-atlas-server/internal/websocket"
)

// App holds the application's shared components.
type App struct {
	cfg         *config.Config
	database    *sql.DB
	hub         *websocket.Hub
	st          *store.Store
	coordinator *generator.Coordinator
	jobManager  *jobs.JobManager
	version     string
}

// Components carries pre-built pieces into NewWithComponents so tests
// can substitute mock providers or an in-memory database.
type Components struct {
	Config *config.Config
	DB     *sql.DB
	Text   text.Client
	Speech speech.Client
}

// New sets up a full App from configuration: database plus migrations,
// websocket hub, real provider clients, coordinator, and job manager.
func New(version string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	textClient, err := text.NewOpenAIClient(cfg.Provider.APIKey, cfg.Provider.BaseURL)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create text provider client: %w", err)
	}
	speechClient, err := speech.NewOpenAIClient(cfg.Provider.APIKey, cfg.Provider.BaseURL, cfg.Provider.SpeechModel)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create speech provider client: %w", err)
	}

	app, err := NewWithComponents(Components{
		Config: cfg,
		DB:     database,
		Text:   textClient,
		Speech: speechClient,
	}, version)
	if err != nil {
		database.Close()
		return nil, err
	}
	log.Println("Core application setup complete.")
	return app, nil
}

// NewWithComponents assembles an App around the given components. The
// caller owns schema setup for the database it passes in.
func NewWithComponents(c Components, version string) (*App, error) {
	hub := websocket.NewHub()
	go hub.Run()

	app := &App{
		cfg:      c.Config,
		database: c.DB,
		hub:      hub,
		st:       store.New(c.DB),
		version:  version,
	}

	app.coordinator = generator.New(generator.Options{
		Text:             c.Text,
		Speech:           c.Speech,
		Log:              recovery.NewLog(c.DB),
		Repo:             app.st,
		AudioDir:         c.Config.Audio.Path,
		TextModel:        c.Config.Provider.TextModel,
		MaxAudioAttempts: c.Config.Generation.MaxAudioAttempts,
		OnProgress:       app.broadcastProgress,
		OnResult:         app.broadcastResult,
	})

	app.jobManager = jobs.NewManager(app)
	app.jobManager.Register("audio-sweep", "Audio Sweep", jobs.RunAudioSweep)

	return app, nil
}

// Close releases the application's resources.
func (a *App) Close() {
	if a.database != nil {
		a.database.Close()
	}
}

func (a *App) Config() *config.Config              { return a.cfg }
func (a *App) DB() *sql.DB                         { return a.database }
func (a *App) WsHub() *websocket.Hub               { return a.hub }
func (a *App) Store() *store.Store                 { return a.st }
func (a *App) Coordinator() *generator.Coordinator { return a.coordinator }
func (a *App) JobManager() *jobs.JobManager        { return a.jobManager }
func (a *App) Version() string                     { return a.version }

func (a *App) broadcastProgress(s models.ProgressSnapshot) {
	a.hub.BroadcastJSON(models.ProgressUpdate{
		JobID:      "generation",
		RequestID:  s.RequestID,
		Phase:      s.Phase,
		WordCount:  s.WordCount,
		Completion: s.Completion,
		Status:     "running",
	})
}

func (a *App) broadcastResult(r models.Result) {
	status := "failed"
	switch {
	case r.Success:
		status = "success"
	case r.ErrorKind == models.ErrKindCancelled:
		status = "cancelled"
	}
	a.hub.BroadcastJSON(models.ProgressUpdate{
		JobID:      "generation",
		RequestID:  r.RequestID,
		Message:    r.Message,
		Completion: 1,
		Status:     status,
		Done:       true,
	})
}
