// The recovery log is the durability counterpart of the coordinator's
// single-flight invariant: a single-slot table holding the projection of
// the in-flight generation request. The slot is written before any
// provider call begins and cleared on every terminal transition, so an
// entry found at startup can only mean the previous process stopped
// abnormally mid-run.

package recovery

import (
	"database/sql"

	"github.com/jonathanprocter/insight-atlas-server/internal/models"
)

// Log provides access to the single recovery slot.
type Log struct {
	db *sql.DB
}

// NewLog creates a Log backed by the application database.
func NewLog(db *sql.DB) *Log {
	return &Log{db: db}
}

// Save writes the entry into the slot, replacing whatever was there.
// The write is synchronous: when Save returns, the entry is durable.
func (l *Log) Save(entry *models.RecoveryEntry) error {
	req := entry.Request
	_, err := l.db.Exec(`
		INSERT OR REPLACE INTO recovery_slot
			(slot, request_id, title, author, file_kind, document,
			 mode, tone, format, summary_depth, voice, target_guide_id, phase, created_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.Title, req.Author, req.FileKind, req.Document,
		req.Settings.Mode, req.Settings.Tone, req.Settings.Format, req.Settings.SummaryDepth,
		req.Voice, req.TargetGuideID, string(entry.Phase), entry.CreatedAt)
	return err
}

// UpdatePhase records the last-known phase of the in-flight run. Best
// effort: the phase is advisory, the request fields are what recovery
// actually needs.
func (l *Log) UpdatePhase(phase models.Phase) error {
	_, err := l.db.Exec("UPDATE recovery_slot SET phase = ? WHERE slot = 1", string(phase))
	return err
}

// Pending returns the stored entry, or nil if the slot is empty.
func (l *Log) Pending() (*models.RecoveryEntry, error) {
	var entry models.RecoveryEntry
	var phase string
	err := l.db.QueryRow(`
		SELECT request_id, title, author, file_kind, document,
			mode, tone, format, summary_depth, voice, target_guide_id, phase, created_at
		FROM recovery_slot WHERE slot = 1`).Scan(
		&entry.Request.ID, &entry.Request.Title, &entry.Request.Author, &entry.Request.FileKind,
		&entry.Request.Document, &entry.Request.Settings.Mode, &entry.Request.Settings.Tone,
		&entry.Request.Settings.Format, &entry.Request.Settings.SummaryDepth,
		&entry.Request.Voice, &entry.Request.TargetGuideID, &phase, &entry.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entry.Phase = models.Phase(phase)
	return &entry, nil
}

// Clear empties the slot. A no-op if the slot is already empty, so it is
// safe to call repeatedly.
func (l *Log) Clear() error {
	_, err := l.db.Exec("DELETE FROM recovery_slot WHERE slot = 1")
	return err
}
