// To handle all database interactions. This is our
// data access layer, keeping SQL queries separate from business logic.

package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jonathanprocter/insight-atlas-server/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store provides all functions to interact with the database.
type Store struct {
	db *sql.DB
}

// New creates a new Store instance.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveGuide inserts a new guide into the library and returns it with its
// assigned id and timestamps.
func (s *Store) SaveGuide(g *models.Guide) (*models.Guide, error) {
	now := time.Now()
	res, err := s.db.Exec(`
		INSERT INTO guides (title, author, file_kind, content, mode, tone, format, summary_depth,
			audio_path, audio_seconds, audio_voice, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.Title, g.Author, g.FileKind, g.Content, g.Mode, g.Tone, g.Format, g.SummaryDepth,
		nullString(g.AudioPath), nullFloat(g.AudioSeconds), nullString(g.AudioVoice), now, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	g.ID = id
	g.CreatedAt = now
	g.UpdatedAt = now
	return g, nil
}

// UpdateGuide replaces the content and generation metadata of an existing
// guide, keeping its identity and bookmarks.
func (s *Store) UpdateGuide(id int64, g *models.Guide) error {
	res, err := s.db.Exec(`
		UPDATE guides SET title = ?, author = ?, file_kind = ?, content = ?,
			mode = ?, tone = ?, format = ?, summary_depth = ?,
			audio_path = ?, audio_seconds = ?, audio_voice = ?, updated_at = ?
		WHERE id = ?`,
		g.Title, g.Author, g.FileKind, g.Content, g.Mode, g.Tone, g.Format, g.SummaryDepth,
		nullString(g.AudioPath), nullFloat(g.AudioSeconds), nullString(g.AudioVoice), time.Now(), id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateGuideAudio attaches narration metadata to a guide without touching
// its content. Used by the explicit audio re-attempt path.
func (s *Store) UpdateGuideAudio(id int64, path string, seconds float64, voice string) error {
	res, err := s.db.Exec(
		"UPDATE guides SET audio_path = ?, audio_seconds = ?, audio_voice = ?, updated_at = ? WHERE id = ?",
		path, seconds, voice, time.Now(), id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetGuide retrieves a single guide by id, including its full content.
func (s *Store) GetGuide(id int64) (*models.Guide, error) {
	var g models.Guide
	var audioPath, audioVoice sql.NullString
	var audioSeconds sql.NullFloat64
	err := s.db.QueryRow(`
		SELECT id, title, author, file_kind, content, mode, tone, format, summary_depth,
			audio_path, audio_seconds, audio_voice, created_at, updated_at
		FROM guides WHERE id = ?`, id).Scan(
		&g.ID, &g.Title, &g.Author, &g.FileKind, &g.Content, &g.Mode, &g.Tone, &g.Format,
		&g.SummaryDepth, &audioPath, &audioSeconds, &audioVoice, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	g.AudioPath = audioPath.String
	g.AudioSeconds = audioSeconds.Float64
	g.AudioVoice = audioVoice.String
	return &g, nil
}

// ListGuides returns all guides ordered by last update, newest first.
// Content is omitted to keep list responses small.
func (s *Store) ListGuides() ([]*models.Guide, error) {
	rows, err := s.db.Query(`
		SELECT id, title, author, file_kind, mode, tone, format, summary_depth,
			audio_path, audio_seconds, audio_voice, created_at, updated_at
		FROM guides ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guides []*models.Guide
	for rows.Next() {
		var g models.Guide
		var audioPath, audioVoice sql.NullString
		var audioSeconds sql.NullFloat64
		if err := rows.Scan(&g.ID, &g.Title, &g.Author, &g.FileKind, &g.Mode, &g.Tone, &g.Format,
			&g.SummaryDepth, &audioPath, &audioSeconds, &audioVoice, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		g.AudioPath = audioPath.String
		g.AudioSeconds = audioSeconds.Float64
		g.AudioVoice = audioVoice.String
		guides = append(guides, &g)
	}
	return guides, rows.Err()
}

// DeleteGuide removes a guide and, via cascade, its bookmarks.
func (s *Store) DeleteGuide(id int64) error {
	res, err := s.db.Exec("DELETE FROM guides WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAudioPaths returns every narration file path referenced by a guide.
// Used by the audio sweep job to find orphaned files.
func (s *Store) ListAudioPaths() ([]string, error) {
	rows, err := s.db.Query("SELECT audio_path FROM guides WHERE audio_path IS NOT NULL AND audio_path != ''")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f float64) interface{} {
	if f == 0 {
		return nil
	}
	return f
}
