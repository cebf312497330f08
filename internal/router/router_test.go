package router

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"go.uber.org/zap/zaptest"

	"github.com/ovaphlow/pitchfork/service-subscriber/internal/auth"
	"github.com/ovaphlow/pitchfork/service-subscriber/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-subscriber/internal/subscriber"
	"github.com/ovaphlow/pitchfork/service-subscriber/internal/subscriber/entity"
	"github.com/ovaphlow/pitchfork/service-subscriber/pkg/utilities"
)

type mapStore struct {
	mu   sync.Mutex
	recs map[string]*entity.Record
}

func (m *mapStore) Create(_ context.Context, rec *entity.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.ID] = rec
	return nil
}

func (m *mapStore) Get(_ context.Context, id string) (*entity.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.recs[id]; ok {
		return rec, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mapStore) Find(_ context.Context, url, name string) (*entity.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.recs {
		if rec.URL == url && rec.Name == name {
			return rec, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mapStore) List(_ context.Context, name string, limit, offset int) ([]*entity.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*entity.Record{}
	for _, rec := range m.recs {
		if name == "" || rec.Name == name {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mapStore) Delete(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[id]; !ok {
		return 0, nil
	}
	delete(m.recs, id)
	return 1, nil
}

func newTestHandler(t *testing.T, secret string) (http.Handler, *auth.Verifier, *metrics.Registry) {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()
	reg := metrics.NewRegistry()
	store := subscriber.NewMeteredStore(&mapStore{recs: map[string]*entity.Record{}}, reg)
	svc := subscriber.NewService(store, utilities.NewIDGenerator(1))
	verifier := auth.NewVerifier(secret, "pitchfork", logger)
	return RegisterRoutes(logger, svc, reg, verifier), verifier, reg
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestHandler(t, "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, prefix+"/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestSecurityHeaders(t *testing.T) {
	h, _, _ := newTestHandler(t, "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, prefix+"/subscribers", nil))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	assert.Equal(t, "", rec.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "https://example.com"+prefix+"/health", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "max-age=2592000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}

func TestCreateWithoutAuth(t *testing.T) {
	h, _, _ := newTestHandler(t, "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, prefix+"/subscribers", strings.NewReader(`{"url":"a","name":"b"}`)))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateRequiresToken(t *testing.T) {
	h, verifier, _ := newTestHandler(t, "s3cret")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, prefix+"/subscribers", strings.NewReader(`{"url":"a","name":"b"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := verifier.Issue("ops", time.Minute)
	assert.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, prefix+"/subscribers", strings.NewReader(`{"url":"a","name":"b"}`))
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// reads stay open
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, prefix+"/subscribers", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	h, _, _ := newTestHandler(t, "")
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, prefix+"/subscribers/unknown", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, prefix+"/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `route="GET /pitchfork-api-subscriber/subscribers/{id}",status="404"`)
	assert.Contains(t, body, `subscriber_store_operations_total{operation="get",status="error"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	h, _, _ := newTestHandler(t, "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
