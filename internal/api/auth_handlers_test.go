package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonathanprocter/insight-atlas-server/internal/auth"
	"github.com/jonathanprocter/insight-atlas-server/internal/testutil"
)

func TestAuthHandlers(t *testing.T) {
	server, _ := testutil.SetupTestServer(t, nil, nil)
	router := server.Router()

	passwordHash, _ := auth.HashPassword("correct-password")
	if _, err := server.Store().CreateUser("alice", passwordHash, "user"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	login := func(username, password string) *httptest.ResponseRecorder {
		payload, _ := json.Marshal(map[string]string{"username": username, "password": password})
		req, _ := http.NewRequest("POST", "/api/users/login", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	t.Run("Wrong Password", func(t *testing.T) {
		if rr := login("alice", "wrong"); rr.Code != http.StatusUnauthorized {
			t.Errorf("got %d, want 401", rr.Code)
		}
	})

	t.Run("Unknown User", func(t *testing.T) {
		if rr := login("nobody", "whatever"); rr.Code != http.StatusUnauthorized {
			t.Errorf("got %d, want 401", rr.Code)
		}
	})

	t.Run("Login Logout Me", func(t *testing.T) {
		rr := login("alice", "correct-password")
		if rr.Code != http.StatusOK {
			t.Fatalf("login got %d, want 200", rr.Code)
		}
		var session *http.Cookie
		for _, c := range rr.Result().Cookies() {
			if c.Name == "session_token" {
				session = c
			}
		}
		if session == nil {
			t.Fatal("no session cookie set")
		}

		req, _ := http.NewRequest("GET", "/api/users/me", nil)
		req.AddCookie(session)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("me got %d, want 200", rr.Code)
		}
		var me map[string]interface{}
		json.Unmarshal(rr.Body.Bytes(), &me)
		if me["username"] != "alice" {
			t.Errorf("me returned %v", me)
		}
		if _, leaked := me["password_hash"]; leaked {
			t.Error("password hash leaked in /me response")
		}

		req, _ = http.NewRequest("POST", "/api/users/logout", nil)
		req.AddCookie(session)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("logout got %d, want 200", rr.Code)
		}

		// The session is gone after logout.
		req, _ = http.NewRequest("GET", "/api/users/me", nil)
		req.AddCookie(session)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("me after logout got %d, want 401", rr.Code)
		}
	})
}

func TestAdminHandlers(t *testing.T) {
	server, _ := testutil.SetupTestServer(t, nil, nil)
	router := server.Router()

	adminCookie := testutil.GetAuthCookie(t, server, "testadmin", "password", "admin")
	userCookie := testutil.GetAuthCookie(t, server, "testuser", "password", "user")

	t.Run("Jobs Status", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/api/admin/jobs/status", nil)
		req.AddCookie(adminCookie)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("got %d, want 200", rr.Code)
		}
	})

	t.Run("Run Job", func(t *testing.T) {
		payload, _ := json.Marshal(map[string]string{"job_id": "audio-sweep"})
		req, _ := http.NewRequest("POST", "/api/admin/jobs/run", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(adminCookie)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusAccepted {
			t.Fatalf("got %d, want 202: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("Unknown Job", func(t *testing.T) {
		payload, _ := json.Marshal(map[string]string{"job_id": "no-such-job"})
		req, _ := http.NewRequest("POST", "/api/admin/jobs/run", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(adminCookie)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusConflict {
			t.Errorf("got %d, want 409", rr.Code)
		}
	})

	t.Run("Forbidden For Regular User", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/api/admin/jobs/status", nil)
		req.AddCookie(userCookie)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusForbidden {
			t.Errorf("got %d, want 403", rr.Code)
		}
	})

	t.Run("Get Version", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/api/version", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("got %d, want 200: %s", rr.Code, rr.Body.String())
		}
	})
}
