package http

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Smallzoamz/Bonchon-Studio/internal/domain/catalog"
	"github.com/Smallzoamz/Bonchon-Studio/internal/domain/orchestrator"
	"github.com/Smallzoamz/Bonchon-Studio/internal/domain/settings"
	"github.com/Smallzoamz/Bonchon-Studio/internal/infrastructure/monitoring"
	"github.com/Smallzoamz/Bonchon-Studio/internal/logging"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/id"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/types"
)

// refreshTimeout bounds a catalog refresh and release sync triggered over HTTP
const refreshTimeout = 45 * time.Second

// Orchestrator is the engine surface the API drives
type Orchestrator interface {
	RequestInstall(appID string) (id.JobID, error)
	RequestUpdate(appID string) (id.JobID, error)
	RequestRepair(appID string) (id.JobID, error)
	RequestUninstall(appID string) (id.JobID, error)
	Cancel(appID string) error
	Launch(appID string) error
	Active() []string
	Apps() []types.AppView
	Updates() []types.UpdateInfo
	State(appID string) types.AppState
	LauncherUpdate(ctx context.Context) (types.LauncherUpdate, error)
}

// Catalog is the catalog store surface the API reads and refreshes
type Catalog interface {
	Entries() []types.CatalogEntry
	Source() types.CatalogSource
	LoadedAt() time.Time
	Refresh(ctx context.Context) (types.CatalogSource, error)
	Sync(ctx context.Context) int
}

// Ledger lists install records
type Ledger interface {
	List() []types.InstalledAppRecord
}

// Settings reads and writes user preferences
type Settings interface {
	Get() types.Settings
	Save(next types.Settings) (types.Settings, error)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	orchestrator Orchestrator
	catalog      Catalog
	ledger       Ledger
	settings     Settings
	version      string
	started      time.Time
	metrics      *monitoring.Metrics
	logger       *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(o Orchestrator, c Catalog, l Ledger, s Settings, version string, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		orchestrator: o,
		catalog:      c,
		ledger:       l,
		settings:     s,
		version:      version,
		started:      time.Now(),
		logger:       logger.Component("api"),
	}
}

// WithMetrics adds the metrics snapshot to health responses
func (h *Handlers) WithMetrics(metrics *monitoring.Metrics) *Handlers {
	h.metrics = metrics
	return h
}

// Health handles the liveness check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"version":        h.version,
		"uptime":         time.Since(h.started).Round(time.Second).String(),
		"active":         h.orchestrator.Active(),
		"catalog_source": h.catalog.Source(),
		"metrics":        h.metrics.GetSnapshot(),
	})
}

// GetCatalog returns the active catalog and where it came from
func (h *Handlers) GetCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"apps":     h.catalog.Entries(),
		"source":   h.catalog.Source(),
		"loadedAt": h.catalog.LoadedAt(),
	})
}

// RefreshCatalog reloads the catalog and syncs versions with GitHub releases.
// A degraded load (cache or built-in list) is still a success.
func (h *Handlers) RefreshCatalog(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), refreshTimeout)
	defer cancel()

	source, err := h.catalog.Refresh(ctx)
	body := gin.H{"source": source}
	if err != nil {
		if !errors.Is(err, catalog.ErrUnavailable) {
			h.respondError(c, err)
			return
		}
		h.logger.Warn("Catalog refresh degraded", zap.Error(err))
		body["warning"] = err.Error()
	}
	body["synced"] = h.catalog.Sync(ctx)
	body["apps"] = h.catalog.Entries()
	c.JSON(http.StatusOK, body)
}

// ListApps joins the catalog with install records and live state
func (h *Handlers) ListApps(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"apps": h.orchestrator.Apps()})
}

// ListInstalled returns the ledger
func (h *Handlers) ListInstalled(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"apps": h.ledger.List()})
}

// ListUpdates returns installed apps with a different catalog version
func (h *Handlers) ListUpdates(c *gin.Context) {
	updates := h.orchestrator.Updates()
	if updates == nil {
		updates = []types.UpdateInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"updates": updates})
}

// AppState reports the live state of one app
func (h *Handlers) AppState(c *gin.Context) {
	c.JSON(http.StatusOK, h.orchestrator.State(c.Param("id")))
}

// Install enqueues an install
func (h *Handlers) Install(c *gin.Context) {
	h.enqueue(c, types.OpInstall, h.orchestrator.RequestInstall)
}

// Update enqueues an update
func (h *Handlers) Update(c *gin.Context) {
	h.enqueue(c, types.OpUpdate, h.orchestrator.RequestUpdate)
}

// Repair enqueues a reinstall of an installed app
func (h *Handlers) Repair(c *gin.Context) {
	h.enqueue(c, types.OpRepair, h.orchestrator.RequestRepair)
}

// Uninstall enqueues an uninstall
func (h *Handlers) Uninstall(c *gin.Context) {
	h.enqueue(c, types.OpUninstall, h.orchestrator.RequestUninstall)
}

// Cancel stops the running install, update or repair of an app
func (h *Handlers) Cancel(c *gin.Context) {
	appID := c.Param("id")
	if err := h.orchestrator.Cancel(appID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"app_id": appID, "cancelling": true})
}

// Launch starts an installed app
func (h *Handlers) Launch(c *gin.Context) {
	appID := c.Param("id")
	if err := h.orchestrator.Launch(appID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"app_id": appID, "launched": true})
}

// GetSettings returns user preferences
func (h *Handlers) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Get())
}

// SaveSettings replaces user preferences
func (h *Handlers) SaveSettings(c *gin.Context) {
	var next types.Settings
	if err := c.ShouldBindJSON(&next); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	saved, err := h.settings.Save(next)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// LauncherUpdate checks the launcher's own repository for a newer release
func (h *Handlers) LauncherUpdate(c *gin.Context) {
	result, err := h.orchestrator.LauncherUpdate(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) enqueue(c *gin.Context, op types.Operation, request func(string) (id.JobID, error)) {
	appID := c.Param("id")
	jobID, err := request(appID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.logger.WithApp(appID).Info("Operation accepted",
		zap.String("operation", string(op)),
		zap.String("job_id", jobID.String()),
	)
	c.JSON(http.StatusAccepted, gin.H{
		"app_id":    appID,
		"operation": op,
		"job_id":    jobID,
	})
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

// StatusFor maps engine errors to HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidID),
		errors.Is(err, settings.ErrInvalidSettings):
		return http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrUnknownApp),
		errors.Is(err, orchestrator.ErrNotInstalled),
		errors.Is(err, orchestrator.ErrNotActive):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrInProgress),
		errors.Is(err, orchestrator.ErrUpToDate),
		errors.Is(err, orchestrator.ErrNotCancellable):
		return http.StatusConflict
	case errors.Is(err, orchestrator.ErrNoDownload),
		errors.Is(err, orchestrator.ErrNotLaunchable),
		errors.Is(err, fs.ErrNotExist):
		return http.StatusUnprocessableEntity
	case errors.Is(err, orchestrator.ErrClosed),
		errors.Is(err, orchestrator.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
