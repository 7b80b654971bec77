package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/geosleuth/geocase/internal/database"
	"github.com/geosleuth/geocase/internal/game"
	"github.com/geosleuth/geocase/internal/migrations"
	"github.com/geosleuth/geocase/internal/realtime"
)

func newTestRouter(t *testing.T) (*chi.Mux, *SQLiteStore) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(db); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	store := NewSQLiteStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := realtime.NewHub(logger, realtime.Options{})
	svc := NewGameService(store, NewRegistry(store), hub, logger)

	r := chi.NewRouter()
	addRoutes(r, logger, store, svc, hub, db, "")
	return r, store
}

func seedConsoleUser(t *testing.T, store *SQLiteStore, email, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if _, err := store.CreateConsoleUser(context.Background(), email, string(hash)); err != nil {
		t.Fatalf("create console user: %v", err)
	}
}

func loginConsole(t *testing.T, r http.Handler, email, password string) *http.Cookie {
	t.Helper()
	body, _ := json.Marshal(ConsoleLoginRequest{Email: email, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/console/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d, body %s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == consoleCookieName {
			return c
		}
	}
	t.Fatal("login response set no session cookie")
	return nil
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, decorate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if decorate != nil {
		decorate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/healthz", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestOpenAPISpec(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/openapi.json", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var spec map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &spec); err != nil {
		t.Fatalf("spec is not valid json: %v", err)
	}
	if _, ok := spec["paths"]; !ok {
		t.Fatal("spec has no paths")
	}
}

func TestConsoleAuth(t *testing.T) {
	r, store := newTestRouter(t)
	seedConsoleUser(t, store, "teacher@example.com", "hunter2")

	// Wrong password.
	w := doJSON(t, r, http.MethodPost, "/api/console/login",
		ConsoleLoginRequest{Email: "teacher@example.com", Password: "wrong"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: status = %d, want 401", w.Code)
	}

	// Unknown user gets the same answer as a bad password.
	w = doJSON(t, r, http.MethodPost, "/api/console/login",
		ConsoleLoginRequest{Email: "nobody@example.com", Password: "hunter2"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user: status = %d, want 401", w.Code)
	}

	cookie := loginConsole(t, r, "teacher@example.com", "hunter2")

	w = doJSON(t, r, http.MethodGet, "/api/console/me", nil, func(req *http.Request) {
		req.AddCookie(cookie)
	})
	if w.Code != http.StatusOK {
		t.Fatalf("me: status = %d, want 200", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/console/logout", nil, func(req *http.Request) {
		req.AddCookie(cookie)
	})
	if w.Code != http.StatusOK {
		t.Fatalf("logout: status = %d, want 200", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/console/me", nil, func(req *http.Request) {
		req.AddCookie(cookie)
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: status = %d, want 401", w.Code)
	}
}

func TestConsoleRoutesRequireAuth(t *testing.T) {
	r, _ := newTestRouter(t)

	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/cases/"},
		{http.MethodPost, "/api/sessions/"},
		{http.MethodPost, "/api/sessions/some-id/start"},
		{http.MethodPost, "/api/sessions/some-id/clues/reveal"},
	}
	for _, p := range paths {
		w := doJSON(t, r, p.method, p.path, nil, nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", p.method, p.path, w.Code)
		}
	}
}

func TestFullSessionFlow(t *testing.T) {
	r, store := newTestRouter(t)
	seedConsoleUser(t, store, "teacher@example.com", "hunter2")
	cookie := loginConsole(t, r, "teacher@example.com", "hunter2")
	asConsole := func(req *http.Request) { req.AddCookie(cookie) }

	// Author a case.
	w := doJSON(t, r, http.MethodPost, "/api/cases/", CaseRequest{
		Title: "Test Case",
		Rounds: []game.Round{{
			Number: 1,
			Clues: []game.Clue{
				{ID: "c1", Type: game.ClueGeography, Content: "big river", RevealOrder: 1, Points: 200},
				{ID: "c2", Type: game.ClueCulture, Content: "famous bread", RevealOrder: 2, Points: 100},
			},
			Answer: game.Answer{
				Location:          game.Coordinate{Lat: 48.8566, Lng: 2.3522},
				AcceptedLocations: []string{"paris"},
				SuspectID:         "dr-meridian",
			},
			Scoring: game.ScoringTable{Both: 400, LocationOnly: 250, SuspectOnly: 100},
		}},
	}, asConsole)
	if w.Code != http.StatusCreated {
		t.Fatalf("create case: status %d, body %s", w.Code, w.Body.String())
	}
	var created game.Case
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode case: %v", err)
	}

	// Create a session on it.
	w = doJSON(t, r, http.MethodPost, "/api/sessions/", CreateSessionRequest{CaseID: created.ID}, asConsole)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: status %d, body %s", w.Code, w.Body.String())
	}
	var sessResp SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &sessResp); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	sessionID := sessResp.Session.ID

	// A team joins the lobby.
	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+sessionID+"/join",
		JoinRequest{Name: "The Magnifiers", Color: "#ff0000"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("join: status %d, body %s", w.Code, w.Body.String())
	}
	var joined JoinResponse
	if err := json.Unmarshal(w.Body.Bytes(), &joined); err != nil {
		t.Fatalf("decode join: %v", err)
	}
	asTeam := func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+joined.Token) }

	// Submitting before start is rejected with a conflict.
	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+sessionID+"/warrants",
		WarrantRequest{LocationID: "paris", SuspectID: "dr-meridian"}, asTeam)
	if w.Code != http.StatusConflict {
		t.Fatalf("warrant before start: status %d, want 409", w.Code)
	}

	// Start and reveal a clue.
	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+sessionID+"/start", nil, asConsole)
	if w.Code != http.StatusOK {
		t.Fatalf("start: status %d, body %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+sessionID+"/clues/reveal", nil, asConsole)
	if w.Code != http.StatusOK {
		t.Fatalf("reveal: status %d, body %s", w.Code, w.Body.String())
	}
	var reveal RevealResponse
	if err := json.Unmarshal(w.Body.Bytes(), &reveal); err != nil {
		t.Fatalf("decode reveal: %v", err)
	}
	if reveal.Clue == nil || reveal.Clue.ID != "c1" {
		t.Fatalf("revealed clue = %+v, want c1", reveal.Clue)
	}

	// The team submits its warrant.
	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+sessionID+"/warrants",
		WarrantRequest{LocationID: "paris", SuspectID: "dr-meridian", Confidence: 5}, asTeam)
	if w.Code != http.StatusCreated {
		t.Fatalf("warrant: status %d, body %s", w.Code, w.Body.String())
	}
	var result WarrantResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode warrant result: %v", err)
	}
	if result.PointsAwarded != 400 {
		t.Fatalf("points = %d, want 400", result.PointsAwarded)
	}

	// A duplicate gets a 409.
	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+sessionID+"/warrants",
		WarrantRequest{LocationID: "paris", SuspectID: "dr-meridian"}, asTeam)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate warrant: status %d, want 409", w.Code)
	}

	// Anyone can read state and scoreboard.
	w = doJSON(t, r, http.MethodGet, "/api/sessions/"+sessionID+"/state", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("state: status %d, body %s", w.Code, w.Body.String())
	}
	var snap StateSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Reveal == nil || len(snap.Reveal.Revealed) != 1 {
		t.Fatalf("snapshot reveal = %+v, want one revealed clue", snap.Reveal)
	}
	if len(snap.Teams) != 1 || snap.Teams[0].Score != 400 || !snap.Teams[0].Submitted {
		t.Fatalf("snapshot teams = %+v", snap.Teams)
	}

	// Advancing past the only round completes the session.
	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+sessionID+"/rounds/advance", nil, asConsole)
	if w.Code != http.StatusOK {
		t.Fatalf("advance: status %d, body %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &sessResp); err != nil {
		t.Fatalf("decode advance: %v", err)
	}
	if sessResp.Session.Status != game.StatusCompleted {
		t.Fatalf("status = %s, want completed", sessResp.Session.Status)
	}
}

func TestWarrantAuth(t *testing.T) {
	r, store := newTestRouter(t)
	seedConsoleUser(t, store, "teacher@example.com", "hunter2")
	cookie := loginConsole(t, r, "teacher@example.com", "hunter2")
	asConsole := func(req *http.Request) { req.AddCookie(cookie) }

	if err := SeedDemo(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)), store); err != nil {
		t.Fatalf("seed demo: %v", err)
	}
	cases, err := store.ListCases(context.Background())
	if err != nil || len(cases) == 0 {
		t.Fatalf("list cases: %v (%d)", err, len(cases))
	}

	w := doJSON(t, r, http.MethodPost, "/api/sessions/", CreateSessionRequest{CaseID: cases[0].ID}, asConsole)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: status %d, body %s", w.Code, w.Body.String())
	}
	var sessResp SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &sessResp); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	sessionID := sessResp.Session.ID

	// No token at all.
	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+sessionID+"/warrants",
		WarrantRequest{LocationID: "paris", SuspectID: "dr-meridian"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status %d, want 401", w.Code)
	}

	// A token from a different session cannot submit here.
	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+sessionID+"/join", JoinRequest{Name: "A"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("join: status %d", w.Code)
	}
	var joined JoinResponse
	if err := json.Unmarshal(w.Body.Bytes(), &joined); err != nil {
		t.Fatalf("decode join: %v", err)
	}

	w = doJSON(t, r, http.MethodPost, "/api/sessions/", CreateSessionRequest{CaseID: cases[0].ID}, asConsole)
	var otherResp SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &otherResp); err != nil {
		t.Fatalf("decode other session: %v", err)
	}

	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+otherResp.Session.ID+"/warrants",
		WarrantRequest{LocationID: "paris", SuspectID: "dr-meridian"},
		func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+joined.Token) })
	if w.Code != http.StatusForbidden {
		t.Fatalf("cross-session token: status %d, want 403", w.Code)
	}
}

func TestCaseValidationOverHTTP(t *testing.T) {
	r, store := newTestRouter(t)
	seedConsoleUser(t, store, "teacher@example.com", "hunter2")
	cookie := loginConsole(t, r, "teacher@example.com", "hunter2")

	// Clue points must not increase across reveal order.
	w := doJSON(t, r, http.MethodPost, "/api/cases/", CaseRequest{
		Title: "Broken",
		Rounds: []game.Round{{
			Number: 1,
			Clues: []game.Clue{
				{ID: "c1", Content: "a", RevealOrder: 1, Points: 100},
				{ID: "c2", Content: "b", RevealOrder: 2, Points: 200},
			},
			Answer: game.Answer{AcceptedLocations: []string{"paris"}, SuspectID: "x"},
		}},
	}, func(req *http.Request) { req.AddCookie(cookie) })
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid case: status %d, want 400", w.Code)
	}
}

func TestDeleteCaseInUse(t *testing.T) {
	r, store := newTestRouter(t)
	seedConsoleUser(t, store, "teacher@example.com", "hunter2")
	cookie := loginConsole(t, r, "teacher@example.com", "hunter2")
	asConsole := func(req *http.Request) { req.AddCookie(cookie) }

	c := demoCase()
	if err := store.CreateCase(context.Background(), c); err != nil {
		t.Fatalf("create case: %v", err)
	}

	w := doJSON(t, r, http.MethodPost, "/api/sessions/", CreateSessionRequest{CaseID: c.ID}, asConsole)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: status %d", w.Code)
	}

	w = doJSON(t, r, http.MethodDelete, "/api/cases/"+c.ID, nil, asConsole)
	if w.Code != http.StatusConflict {
		t.Fatalf("delete in-use case: status %d, want 409", w.Code)
	}
}
