package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jonathanprocter/insight-atlas-server/internal/models"
)

// CountUsers returns the total number of accounts. Used at startup to
// decide whether to provision the default admin.
func (s *Store) CountUsers() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// CreateUser adds a new user to the database.
func (s *Store) CreateUser(username, passwordHash, role string) (*models.User, error) {
	query := "INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)"
	res, err := s.db.Exec(query, username, passwordHash, role, time.Now())
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	return &models.User{
		ID:       id,
		Username: username,
		Role:     role,
	}, nil
}

// GetUserByUsername retrieves a user by their unique username.
func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	err := s.db.QueryRow(
		"SELECT id, username, password_hash, role, created_at FROM users WHERE username = ?",
		username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateSession generates a new session token for the user and stores it.
func (s *Store) CreateSession(userID int64) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	_, err := s.db.Exec("INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, time.Now().Add(7*24*time.Hour))
	if err != nil {
		return "", err
	}
	return token, nil
}

// GetUserFromSession resolves a session token to its user, rejecting
// expired sessions.
func (s *Store) GetUserFromSession(token string) (*models.User, error) {
	var user models.User
	var expiresAt time.Time
	err := s.db.QueryRow(`
		SELECT u.id, u.username, u.role, u.created_at, se.expires_at
		FROM users u JOIN sessions se ON u.id = se.user_id
		WHERE se.token = ?`, token).Scan(&user.ID, &user.Username, &user.Role, &user.CreatedAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, errors.New("session not found")
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(expiresAt) {
		s.DeleteSession(token)
		return nil, errors.New("session expired")
	}
	return &user, nil
}

// DeleteSession removes a session token, logging the user out.
func (s *Store) DeleteSession(token string) error {
	_, err := s.db.Exec("DELETE FROM sessions WHERE token = ?", token)
	return err
}
