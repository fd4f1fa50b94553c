// This file defines the core data structures (models) for our application.
// These structs represent finished guides and their bookmarks in the library.

package models

import "time"

// Guide represents a single finished guide in the library.
type Guide struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Author       string     `json:"author"`
	FileKind     string     `json:"file_kind"`
	Content      string     `json:"content"`
	Mode         string     `json:"mode"`
	Tone         string     `json:"tone"`
	Format       string     `json:"format"`
	SummaryDepth string     `json:"summary_depth"`
	AudioPath    string     `json:"audio_path,omitempty"`
	AudioSeconds float64    `json:"audio_seconds,omitempty"`
	AudioVoice   string     `json:"audio_voice,omitempty"`
	Bookmarks    []*Bookmark `json:"bookmarks,omitempty"` // omitempty hides it when not loaded
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Bookmark marks a reading position inside a guide.
type Bookmark struct {
	ID        int64     `json:"id"`
	GuideID   int64     `json:"guide_id"`
	Position  int       `json:"position"` // character offset into the guide content
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
