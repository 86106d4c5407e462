package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rchejfec/passive-policy-intelligence/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestIndexRoute(t *testing.T) {
	db := openTestDB(t)
	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Digests") {
		t.Error("expected 'Digests' in response body")
	}
}

func TestDigestRoute(t *testing.T) {
	db := openTestDB(t)
	id, err := db.InsertDigest("# Daily Policy Digest\n\n## Section\n- item", 1, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", fmt.Sprintf("/digest/%d", id), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	// Markdown body is rendered to HTML
	if !strings.Contains(rec.Body.String(), "<h2") {
		t.Error("expected rendered markdown heading in response body")
	}
}

func TestDigestRouteNotFound(t *testing.T) {
	db := openTestDB(t)
	srv, _ := New(db)

	req := httptest.NewRequest("GET", "/digest/999", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestAnchorsRoute(t *testing.T) {
	db := openTestDB(t)
	db.InsertAnchor("AI Regulation", "", "analyst", nil)
	srv, _ := New(db)

	req := httptest.NewRequest("GET", "/anchors", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "AI Regulation") {
		t.Error("expected anchor name in response body")
	}
}

func TestAddAnchorRoute(t *testing.T) {
	db := openTestDB(t)
	srv, _ := New(db)

	form := url.Values{}
	form.Set("name", "Cyber Norms")
	form.Set("description", "UN cyber norms work")
	form.Set("tags", "cybersecurity, digital policy")

	req := httptest.NewRequest("POST", "/anchors/add", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Errorf("expected redirect, got %d", rec.Code)
	}

	anchor, err := db.GetAnchorByName("Cyber Norms")
	if err != nil || anchor == nil {
		t.Fatalf("expected anchor to be created: %v", err)
	}
	components, _ := db.GetAnchorComponents(anchor.ID)
	if len(components) != 2 {
		t.Errorf("expected 2 tag components, got %d", len(components))
	}
}

func TestAnchorDeactivateRoute(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.InsertAnchor("Anchor", "", "", nil)
	srv, _ := New(db)

	req := httptest.NewRequest("POST", fmt.Sprintf("/anchors/%d/deactivate", id), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Errorf("expected redirect, got %d", rec.Code)
	}
	active, _ := db.GetActiveAnchors()
	if len(active) != 0 {
		t.Errorf("expected anchor deactivated, got %d active", len(active))
	}
}
