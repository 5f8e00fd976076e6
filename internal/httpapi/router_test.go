package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NoxZet/Restful/internal/config"
	"github.com/NoxZet/Restful/internal/mapping"
	"github.com/NoxZet/Restful/internal/models"
	"github.com/NoxZet/Restful/internal/resource"
	"github.com/NoxZet/Restful/internal/response"
	"github.com/NoxZet/Restful/internal/store"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

type fakeStore struct {
	mu    sync.Mutex
	order []string
	items map[string]*models.Resource
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: make(map[string]*models.Resource)}
}

func (f *fakeStore) Put(_ context.Context, name string, data *resource.Value, contentType string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.TrimSpace(name) == "" {
		return 0, store.ErrInvalidName
	}
	res, ok := f.items[name]
	if !ok {
		res = &models.Resource{ResourceInfo: models.ResourceInfo{Name: name}}
		f.items[name] = res
		f.order = append(f.order, name)
	}
	res.Data = data
	res.ContentType = contentType
	res.Revision++
	res.UpdatedAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return res.Revision, nil
}

func (f *fakeStore) Get(_ context.Context, name string) (*models.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.items[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, name)
	}
	return res, nil
}

func (f *fakeStore) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[name]; !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, name)
	}
	delete(f.items, name)
	for i, n := range f.order {
		if n == name {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeStore) List(context.Context) ([]models.ResourceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ResourceInfo, 0, len(f.order))
	for _, n := range f.order {
		out = append(out, f.items[n].ResourceInfo)
	}
	return out, nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func newTestRouter(pool Pinger) (http.Handler, *fakeStore) {
	cfg := &config.Config{APIKeys: []config.APIKey{{Name: "test", Key: "secret"}}}
	mappers := mapping.DefaultContext(mapping.DefaultRootElement)
	st := newFakeStore()
	return NewRouter(cfg, Deps{
		Pool:      pool,
		Store:     st,
		Mappers:   mappers,
		Responses: response.NewResponseFactory(response.DefaultConfig(), mappers),
	}), st
}

type call struct {
	method      string
	target      string
	body        string
	contentType string
	accept      string
	apiKey      string
}

func do(t *testing.T, h http.Handler, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if c.body != "" {
		body = strings.NewReader(c.body)
	}
	req := httptest.NewRequest(c.method, c.target, body)
	if c.contentType != "" {
		req.Header.Set("Content-Type", c.contentType)
	}
	if c.accept != "" {
		req.Header.Set("Accept", c.accept)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(nil)
	rec := do(t, h, call{method: http.MethodGet, target: "/health"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	h, _ = newTestRouter(failingPinger{})
	rec = do(t, h, call{method: http.MethodGet, target: "/health"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestVersionIsNegotiated(t *testing.T) {
	h, _ := newTestRouter(nil)

	tests := []struct {
		name     string
		accept   string
		wantCode int
		wantCT   string
		wantBody string
	}{
		{
			name:     "default json",
			wantCode: http.StatusOK,
			wantCT:   "application/json; charset=utf-8",
			wantBody: `"name":"restful"`,
		},
		{
			name:     "xml",
			accept:   "application/xml",
			wantCode: http.StatusOK,
			wantCT:   "application/xml; charset=utf-8",
			wantBody: "<name>restful</name>",
		},
		{
			name:     "not acceptable",
			accept:   "text/html",
			wantCode: http.StatusNotAcceptable,
			wantCT:   "text/plain; charset=utf-8",
			wantBody: "unknown Accept header: text/html",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, call{method: http.MethodGet, target: "/version?prettyPrint=false", accept: tc.accept})
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, tc.wantCT, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tc.wantBody)
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	h, _ := newTestRouter(nil)

	rec := do(t, h, call{method: http.MethodGet, target: "/api/resources"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, call{method: http.MethodGet, target: "/api/resources", apiKey: "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/resources", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code, "empty list with bearer key")
}

func TestResourceLifecycle(t *testing.T) {
	h, st := newTestRouter(nil)

	rec := do(t, h, call{
		method:      http.MethodPut,
		target:      "/api/resources/config",
		body:        `<root><name>a</name><tags>x</tags><tags>y</tags></root>`,
		contentType: "application/xml; charset=utf-8",
		apiKey:      "secret",
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get("X-Resource-Revision"))
	assert.Equal(t, "application/xml", st.items["config"].ContentType)

	rec = do(t, h, call{method: http.MethodGet, target: "/api/resources/config?prettyPrint=false", accept: "application/json", apiKey: "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"name":"a","tags":["x","y"]}`, rec.Body.String())

	rec = do(t, h, call{method: http.MethodGet, target: "/api/resources?prettyPrint=false", apiKey: "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `[{"name":"config","content_type":"application/xml","revision":1,"updated_at":"2024-05-01T10:00:00Z"}]`, rec.Body.String())

	rec = do(t, h, call{method: http.MethodDelete, target: "/api/resources/config", apiKey: "secret"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, call{method: http.MethodDelete, target: "/api/resources/config?prettyPrint=false", apiKey: "secret"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, `{"code":404,"error":"resource not found: config"}`, rec.Body.String())
}

func TestErrorsSurviveNullAccept(t *testing.T) {
	h, _ := newTestRouter(nil)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec := do(t, h, call{method: method, target: "/api/resources/missing", accept: resource.MIMENull, apiKey: "secret"})
		assert.Equal(t, http.StatusNotFound, rec.Code, method)
		assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"), method)
		assert.Contains(t, rec.Body.String(), "resource not found: missing", method)
	}

	// Successful responses with no body still negotiate to the null type.
	rec := do(t, h, call{method: http.MethodGet, target: "/api/resources", accept: resource.MIMENull, apiKey: "secret"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestGetUnrepresentableResource(t *testing.T) {
	h, _ := newTestRouter(nil)

	rec := do(t, h, call{
		method:      http.MethodPut,
		target:      "/api/resources/greeting",
		body:        `"hello"`,
		contentType: "application/json",
		apiKey:      "secret",
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, h, call{method: http.MethodGet, target: "/api/resources/greeting", accept: "application/xml", apiKey: "secret"})
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
	assert.Contains(t, rec.Body.String(), "xml data must be a list or a map")

	rec = do(t, h, call{method: http.MethodGet, target: "/api/resources/greeting", accept: "application/json", apiKey: "secret"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"hello"`, strings.TrimSpace(rec.Body.String()))
}

func TestPutRejectsBadBodies(t *testing.T) {
	h, _ := newTestRouter(nil)

	tests := []struct {
		name        string
		body        string
		contentType string
		wantCode    int
	}{
		{name: "unknown content type", body: "a,b", contentType: "text/csv", wantCode: http.StatusUnsupportedMediaType},
		{name: "missing content type", body: "{}", wantCode: http.StatusUnsupportedMediaType},
		{name: "malformed xml", body: "<root><a>", contentType: "application/xml", wantCode: http.StatusBadRequest},
		{name: "malformed json", body: `{"a":`, contentType: "application/json", wantCode: http.StatusBadRequest},
		{name: "bad query string", body: "a=%zz", contentType: "application/x-www-form-urlencoded", wantCode: http.StatusBadRequest},
		{name: "self referencing yaml anchor", body: "a: &x [*x]\n", contentType: resource.MIMEYAML, wantCode: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, call{
				method:      http.MethodPut,
				target:      "/api/resources/x",
				body:        tc.body,
				contentType: tc.contentType,
				apiKey:      "secret",
			})
			assert.Equal(t, tc.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestConvert(t *testing.T) {
	h, _ := newTestRouter(nil)

	rec := do(t, h, call{
		method:      http.MethodPost,
		target:      "/api/convert?prettyPrint=false",
		body:        `{"name":"a","tags":["x","y"]}`,
		contentType: "application/json",
		accept:      "application/xml",
		apiKey:      "secret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xmlHeader+"<root><name>a</name><tags>x</tags><tags>y</tags></root>\n", rec.Body.String())

	rec = do(t, h, call{
		method:      http.MethodPost,
		target:      "/api/convert?jsonp=cb&prettyPrint=false",
		body:        `<root><a>1</a></root>`,
		contentType: "text/xml",
		apiKey:      "secret",
	})
	assert.True(t, strings.HasPrefix(rec.Body.String(), `cb({"response":{"a":"1"},"status":200,`), rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter(nil)
	do(t, h, call{method: http.MethodGet, target: "/version"})

	rec := do(t, h, call{method: http.MethodGet, target: "/metrics"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "restful_negotiated_total")
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
