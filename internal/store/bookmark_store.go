package store

import (
	"time"

	"github.com/jonathanprocter/insight-atlas-server/internal/models"
)

// AddBookmark saves a reading position for a guide.
func (s *Store) AddBookmark(guideID int64, position int, note string) (*models.Bookmark, error) {
	now := time.Now()
	res, err := s.db.Exec(
		"INSERT INTO bookmarks (guide_id, position, note, created_at) VALUES (?, ?, ?, ?)",
		guideID, position, note, now)
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	return &models.Bookmark{
		ID:        id,
		GuideID:   guideID,
		Position:  position,
		Note:      note,
		CreatedAt: now,
	}, nil
}

// ListBookmarks returns a guide's bookmarks ordered by position.
func (s *Store) ListBookmarks(guideID int64) ([]*models.Bookmark, error) {
	rows, err := s.db.Query(
		"SELECT id, guide_id, position, note, created_at FROM bookmarks WHERE guide_id = ? ORDER BY position ASC",
		guideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookmarks []*models.Bookmark
	for rows.Next() {
		var b models.Bookmark
		if err := rows.Scan(&b.ID, &b.GuideID, &b.Position, &b.Note, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, &b)
	}
	return bookmarks, rows.Err()
}

// DeleteBookmark removes a single bookmark.
func (s *Store) DeleteBookmark(id int64) error {
	res, err := s.db.Exec("DELETE FROM bookmarks WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
