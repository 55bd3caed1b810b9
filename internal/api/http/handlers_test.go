package http

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Smallzoamz/Bonchon-Studio/internal/domain/catalog"
	"github.com/Smallzoamz/Bonchon-Studio/internal/domain/orchestrator"
	"github.com/Smallzoamz/Bonchon-Studio/internal/domain/settings"
	"github.com/Smallzoamz/Bonchon-Studio/internal/infrastructure/monitoring"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/id"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/types"
)

type fakeOrchestrator struct {
	mu       sync.Mutex
	calls    []string
	err      error
	launcher types.LauncherUpdate
}

func (f *fakeOrchestrator) record(op, appID string) (id.JobID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+":"+appID)
	if f.err != nil {
		return "", f.err
	}
	return id.NewJobID(), nil
}

func (f *fakeOrchestrator) RequestInstall(appID string) (id.JobID, error) {
	return f.record("install", appID)
}
func (f *fakeOrchestrator) RequestUpdate(appID string) (id.JobID, error) {
	return f.record("update", appID)
}
func (f *fakeOrchestrator) RequestRepair(appID string) (id.JobID, error) {
	return f.record("repair", appID)
}
func (f *fakeOrchestrator) RequestUninstall(appID string) (id.JobID, error) {
	return f.record("uninstall", appID)
}
func (f *fakeOrchestrator) Cancel(appID string) error {
	_, err := f.record("cancel", appID)
	return err
}
func (f *fakeOrchestrator) Launch(appID string) error {
	_, err := f.record("launch", appID)
	return err
}
func (f *fakeOrchestrator) Active() []string { return []string{} }
func (f *fakeOrchestrator) Apps() []types.AppView {
	return []types.AppView{{App: types.CatalogEntry{ID: "fivem-launcher"}, State: "idle"}}
}
func (f *fakeOrchestrator) Updates() []types.UpdateInfo { return nil }
func (f *fakeOrchestrator) State(appID string) types.AppState {
	return types.AppState{AppID: appID, State: "downloading", Operation: types.OpInstall}
}
func (f *fakeOrchestrator) LauncherUpdate(context.Context) (types.LauncherUpdate, error) {
	return f.launcher, f.err
}

type fakeCatalog struct {
	refreshErr error
	synced     int
}

func (f *fakeCatalog) Entries() []types.CatalogEntry {
	return []types.CatalogEntry{{ID: "fivem-launcher", Name: "FiveM Launcher", Version: "1.0.0"}}
}
func (f *fakeCatalog) Source() types.CatalogSource { return types.SourceRemote }
func (f *fakeCatalog) LoadedAt() time.Time          { return time.Unix(0, 0) }
func (f *fakeCatalog) Refresh(context.Context) (types.CatalogSource, error) {
	if f.refreshErr != nil {
		return types.SourceFallback, f.refreshErr
	}
	return types.SourceRemote, nil
}
func (f *fakeCatalog) Sync(context.Context) int { return f.synced }

type fakeLedger struct{}

func (fakeLedger) List() []types.InstalledAppRecord {
	return []types.InstalledAppRecord{{ID: "fivem-launcher", Version: "1.0.0"}}
}

type fakeSettings struct {
	current types.Settings
}

func (f *fakeSettings) Get() types.Settings { return f.current }
func (f *fakeSettings) Save(next types.Settings) (types.Settings, error) {
	if !strings.HasPrefix(next.DownloadPath, "/") {
		return types.Settings{}, fmt.Errorf("%w: relative", settings.ErrInvalidSettings)
	}
	f.current = next
	return next, nil
}

type fixture struct {
	router  *gin.Engine
	orch    *fakeOrchestrator
	catalog *fakeCatalog
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)
	f := &fixture{
		router:  gin.New(),
		orch:    &fakeOrchestrator{},
		catalog: &fakeCatalog{synced: 2},
	}
	h := NewHandlers(f.orch, f.catalog, fakeLedger{}, &fakeSettings{current: types.Settings{DownloadPath: "/apps"}}, "1.2.0", nil)
	h.Register(f.router)
	return f
}

func (f *fixture) do(method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var out map[string]any
	_ = sonic.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestHealth(t *testing.T) {
	f := newFixture()
	w, body := f.do("GET", "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.2.0", body["version"])
	assert.Equal(t, "remote", body["catalog_source"])
	assert.Equal(t, map[string]any{
		"totalRequests":    float64(0),
		"totalErrors":      float64(0),
		"activeOperations": float64(0),
		"bytesTransferred": float64(0),
		"uptimeSeconds":    float64(0),
	}, body["metrics"])
}

func TestHealthReportsMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := monitoring.NewMetricsWith(prometheus.NewRegistry())
	m.AddTransferBytes(2048)
	timer := monitoring.NewTimer(m, "install")
	defer timer.Stop("success")

	router := gin.New()
	router.Use(monitoring.Middleware(m))
	NewHandlers(&fakeOrchestrator{}, &fakeCatalog{}, fakeLedger{}, &fakeSettings{}, "1.2.0", nil).
		WithMetrics(m).
		Register(router)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/missing", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Metrics monitoring.Snapshot `json:"metrics"`
	}
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(2048), body.Metrics.BytesTransferred)
	assert.Equal(t, int64(1), body.Metrics.ActiveOperations)
	assert.Equal(t, int64(1), body.Metrics.TotalRequests)
	assert.Equal(t, int64(1), body.Metrics.TotalErrors)
	assert.Positive(t, body.Metrics.UptimeSeconds)
}

func TestReadRoutes(t *testing.T) {
	f := newFixture()

	tests := []struct {
		path string
		key  string
	}{
		{"/catalog", "apps"},
		{"/apps", "apps"},
		{"/apps/installed", "apps"},
		{"/apps/updates", "updates"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w, body := f.do("GET", tt.path, "")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.IsType(t, []any{}, body[tt.key], "%s must be a JSON array", tt.key)
		})
	}
}

func TestAppState(t *testing.T) {
	f := newFixture()
	w, body := f.do("GET", "/apps/fivem-launcher/state", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fivem-launcher", body["appId"])
	assert.Equal(t, "downloading", body["state"])
}

func TestEnqueueRoutes(t *testing.T) {
	tests := []struct {
		method string
		path   string
		call   string
	}{
		{"POST", "/apps/fivem-launcher/install", "install:fivem-launcher"},
		{"POST", "/apps/fivem-launcher/update", "update:fivem-launcher"},
		{"POST", "/apps/fivem-launcher/repair", "repair:fivem-launcher"},
		{"DELETE", "/apps/fivem-launcher", "uninstall:fivem-launcher"},
	}

	for _, tt := range tests {
		t.Run(tt.call, func(t *testing.T) {
			f := newFixture()
			w, body := f.do(tt.method, tt.path, "")

			assert.Equal(t, http.StatusAccepted, w.Code)
			assert.Equal(t, "fivem-launcher", body["app_id"])
			assert.True(t, id.IsValid(body["job_id"].(string)))
			assert.Equal(t, []string{tt.call}, f.orch.calls)
		})
	}
}

func TestEnqueueErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid id", orchestrator.ErrInvalidID, http.StatusBadRequest},
		{"unknown", orchestrator.ErrUnknownApp, http.StatusNotFound},
		{"busy", orchestrator.ErrInProgress, http.StatusConflict},
		{"no download", orchestrator.ErrNoDownload, http.StatusUnprocessableEntity},
		{"closed", orchestrator.ErrClosed, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.orch.err = fmt.Errorf("x: %w", tt.err)

			w, body := f.do("POST", "/apps/x/install", "")
			assert.Equal(t, tt.want, w.Code)
			assert.Contains(t, body["error"], tt.err.Error())
		})
	}
}

func TestCancelAndLaunch(t *testing.T) {
	f := newFixture()

	w, body := f.do("POST", "/apps/fivem-launcher/cancel", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, true, body["cancelling"])

	w, body = f.do("POST", "/apps/fivem-launcher/launch", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["launched"])

	f.orch.err = orchestrator.ErrNotCancellable
	w, _ = f.do("POST", "/apps/fivem-launcher/cancel", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRefreshCatalog(t *testing.T) {
	t.Run("remote", func(t *testing.T) {
		f := newFixture()
		w, body := f.do("POST", "/catalog/refresh", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "remote", body["source"])
		assert.EqualValues(t, 2, body["synced"])
		assert.NotContains(t, body, "warning")
	})

	t.Run("degraded", func(t *testing.T) {
		f := newFixture()
		f.catalog.refreshErr = fmt.Errorf("%w: HTTP 500", catalog.ErrUnavailable)
		w, body := f.do("POST", "/catalog/refresh", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "fallback", body["source"])
		assert.Contains(t, body["warning"], "HTTP 500")
	})

	t.Run("failed", func(t *testing.T) {
		f := newFixture()
		f.catalog.refreshErr = errors.New("disk gone")
		w, _ := f.do("POST", "/catalog/refresh", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestSettings(t *testing.T) {
	f := newFixture()

	w, body := f.do("GET", "/settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/apps", body["downloadPath"])

	w, body = f.do("PUT", "/settings", `{"downloadPath":"/games","theme":"light","autoStart":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/games", body["downloadPath"])
	assert.Equal(t, true, body["autoStart"])

	w, _ = f.do("PUT", "/settings", `{"downloadPath":"games"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do("PUT", "/settings", `{"downloadPath":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLauncherUpdate(t *testing.T) {
	f := newFixture()
	f.orch.launcher = types.LauncherUpdate{CurrentVersion: "1.2.0", LatestVersion: "1.3.0", Available: true}

	w, body := f.do("GET", "/launcher/update", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["available"])

	f.orch.err = orchestrator.ErrNotConfigured
	w, _ = f.do("GET", "/launcher/update", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{orchestrator.ErrNotInstalled, http.StatusNotFound},
		{orchestrator.ErrNotActive, http.StatusNotFound},
		{orchestrator.ErrUpToDate, http.StatusConflict},
		{orchestrator.ErrNotLaunchable, http.StatusUnprocessableEntity},
		{fmt.Errorf("stat: %w", fs.ErrNotExist), http.StatusUnprocessableEntity},
		{settings.ErrInvalidSettings, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}
