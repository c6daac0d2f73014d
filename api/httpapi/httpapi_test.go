package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mem "shanyrakkit/adapters/memory"
	"shanyrakkit/core"
	"shanyrakkit/engine"
)

func newTestService() *engine.ShanyrakService {
	storage := mem.New()
	bus := engine.NewEventBus(engine.DispatchSync)
	rules := engine.DefaultRuleEngine()
	return engine.NewShanyrakService(storage, bus, rules)
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeShanyrak(t *testing.T, rec *httptest.ResponseRecorder) core.Shanyrak {
	t.Helper()
	var s core.Shanyrak
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode body: %v (%s)", err, rec.Body.String())
	}
	return s
}

func TestCreateShanyrak(t *testing.T) {
	handler := NewMux(newTestService(), nil, Options{PathPrefix: "/api"})

	rec := doJSON(t, handler, http.MethodPost, "/api/shanyraks", `{"name":" Red ","color":" #F00 "}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeShanyrak(t, rec)
	if created.Name != "Red" || created.Color != "#F00" {
		t.Fatalf("fields must be trimmed: %+v", created)
	}
	if created.Points != 0 || created.Members != 0 {
		t.Fatalf("new shanyrak must start at zero: %+v", created)
	}
}

func TestCreateValidationAndConflict(t *testing.T) {
	handler := NewMux(newTestService(), nil, Options{PathPrefix: "/api"})

	rec := doJSON(t, handler, http.MethodPost, "/api/shanyraks", `{"name":"  ","color":"#F00"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank name, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/shanyraks", `{"name":"Red"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing color, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/shanyraks", `{"name":"Red","color":"#F00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/shanyraks", `{"name":" Red","color":"#A00"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate trimmed name, got %d", rec.Code)
	}

	var errBody map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &errBody)
	if errBody["error"] == "" {
		t.Fatalf("error body must carry an error message: %s", rec.Body.String())
	}
}

func TestGetNotFound(t *testing.T) {
	handler := NewMux(newTestService(), nil, Options{PathPrefix: "/api"})

	rec := doJSON(t, handler, http.MethodGet, "/api/shanyraks/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAddPointsValidation(t *testing.T) {
	handler := NewMux(newTestService(), nil, Options{PathPrefix: "/api"})
	rec := doJSON(t, handler, http.MethodPost, "/api/shanyraks", `{"name":"Red","color":"#F00"}`)
	id := decodeShanyrak(t, rec).ID

	for _, body := range []string{`{"points":0}`, `{"points":-5}`, `{}`, `{"points":"ten"}`} {
		rec := doJSON(t, handler, http.MethodPost, "/api/shanyraks/"+string(id)+"/add-points", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/shanyraks/"+string(id)+"/add-points", `{"points":7}`)
	if rec.Code != http.StatusOK || decodeShanyrak(t, rec).Points != 7 {
		t.Fatalf("rejected awards must not change points: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/shanyraks/missing/add-points", `{"points":7}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", rec.Code)
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	handler := NewMux(newTestService(), nil, Options{PathPrefix: "/api"})

	ids := map[string]core.ShanyrakID{}
	for _, n := range []string{"A", "B", "C"} {
		rec := doJSON(t, handler, http.MethodPost, "/api/shanyraks", `{"name":"`+n+`","color":"#123"}`)
		ids[n] = decodeShanyrak(t, rec).ID
	}
	for name, points := range map[string]string{"A": "10", "B": "30", "C": "20"} {
		doJSON(t, handler, http.MethodPost, "/api/shanyraks/"+string(ids[name])+"/add-points", `{"points":`+points+`}`)
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/shanyraks/leaderboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var ranked []core.Shanyrak
	if err := json.Unmarshal(rec.Body.Bytes(), &ranked); err != nil {
		t.Fatal(err)
	}
	if len(ranked) != 3 || ranked[0].Name != "B" || ranked[1].Name != "C" || ranked[2].Name != "A" {
		t.Fatalf("unexpected order: %+v", ranked)
	}
}

func TestRecalculate(t *testing.T) {
	handler := NewMux(newTestService(), nil, Options{PathPrefix: "/api"})
	doJSON(t, handler, http.MethodPost, "/api/shanyraks", `{"name":"Red","color":"#F00"}`)

	rec := doJSON(t, handler, http.MethodPost, "/api/shanyraks/leaderboard/recalculate", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

// End-to-end scenario: create, award, join, reject negative membership,
// verify leaderboard position.
func TestLedgerScenario(t *testing.T) {
	handler := NewMux(newTestService(), nil, Options{PathPrefix: "/api"})

	rec := doJSON(t, handler, http.MethodPost, "/api/shanyraks", `{"name":"Red","color":"#F00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}
	red := decodeShanyrak(t, rec)

	rec = doJSON(t, handler, http.MethodPost, "/api/shanyraks", `{"name":"Blue","color":"#00F"}`)
	blue := decodeShanyrak(t, rec)
	doJSON(t, handler, http.MethodPost, "/api/shanyraks/"+string(blue.ID)+"/add-points", `{"points":80}`)

	rec = doJSON(t, handler, http.MethodPost, "/api/shanyraks/"+string(red.ID)+"/add-points", `{"points":50}`)
	if got := decodeShanyrak(t, rec); got.Points != 50 {
		t.Fatalf("expected 50 points, got %d", got.Points)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/shanyraks/"+string(red.ID)+"/members", `{"delta":5}`)
	if got := decodeShanyrak(t, rec); got.Members != 5 {
		t.Fatalf("expected 5 members, got %d", got.Members)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/shanyraks/"+string(red.ID)+"/members", `{"delta":-10}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative membership, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/shanyraks/"+string(red.ID), "")
	if got := decodeShanyrak(t, rec); got.Members != 5 {
		t.Fatalf("state must be unchanged after rejection, got %d members", got.Members)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/shanyraks/leaderboard", "")
	var ranked []core.Shanyrak
	_ = json.Unmarshal(rec.Body.Bytes(), &ranked)
	if len(ranked) != 2 || ranked[0].Name != "Blue" || ranked[1].Name != "Red" {
		t.Fatalf("unexpected leaderboard: %+v", ranked)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	handler := NewMux(newTestService(), nil, Options{
		PathPrefix:      "/api",
		APIKeys:         []string{"secret"},
		AllowCORSOrigin: "*",
	})

	rec := doJSON(t, handler, http.MethodGet, "/api/shanyraks", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/shanyraks", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec2.Code)
	}
}

func TestRateLimit(t *testing.T) {
	handler := NewMux(newTestService(), nil, Options{
		PathPrefix:       "/api",
		APIKeys:          []string{"k"},
		RateLimitEnabled: true,
		RateLimitRPM:     1,
		RateLimitBurst:   1,
	})

	req1 := httptest.NewRequest(http.MethodGet, "/api/shanyraks", nil)
	req1.Header.Set("X-API-Key", "k")
	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected 200 first request, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/shanyraks", nil)
	req2.Header.Set("X-API-Key", "k")
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec2.Code)
	}
}
