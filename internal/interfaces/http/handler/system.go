package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/apibase/backend/internal/infrastructure/cache"
	"github.com/apibase/backend/internal/infrastructure/config"
	"github.com/apibase/backend/internal/infrastructure/logger"
	"github.com/apibase/backend/internal/infrastructure/persistence"
	"github.com/apibase/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SystemHandler serves the informational endpoints of the scaffold: the
// root banner, the health check and the system info/ping pair.
type SystemHandler struct {
	BaseHandler
	cfg       *config.Config
	db        *persistence.Database
	store     cache.Store
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler. The cache store may be nil
// when no cache backend is configured.
func NewSystemHandler(cfg *config.Config, db *persistence.Database, store cache.Store) *SystemHandler {
	return &SystemHandler{
		cfg:       cfg,
		db:        db,
		store:     store,
		startTime: time.Now(),
	}
}

// RootResponse is the fixed payload served at the application root.
// @name HandlerRootResponse
type RootResponse struct {
	Message     string `json:"message" example:"Welcome to apibase"`
	Version     string `json:"version" example:"0.1.0"`
	Environment string `json:"environment" example:"development"`
	DocsURL     string `json:"docs_url" example:"/swagger/index.html"`
	APIBase     string `json:"api_base" example:"/api/v1"`
	Status      string `json:"status" example:"operational"`
}

// Root godoc
// @ID           getRoot
// @Summary      API information
// @Description  Returns the application name, version and where to find the documentation
// @Tags         system
// @Produce      json
// @Success      200 {object} RootResponse
// @Router       / [get]
func (h *SystemHandler) Root(c *gin.Context) {
	docsURL := ""
	if h.cfg.Swagger.Enabled {
		docsURL = "/swagger/index.html"
	}

	c.JSON(http.StatusOK, RootResponse{
		Message:     "Welcome to " + h.cfg.App.Name,
		Version:     h.cfg.App.Version,
		Environment: h.cfg.App.Env,
		DocsURL:     docsURL,
		APIBase:     h.cfg.HTTP.APIPrefix,
		Status:      "operational",
	})
}

// HealthResponse reports liveness of the service and its attached backends.
// @name HandlerHealthResponse
type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	Time     string `json:"time" example:"2026-01-23T12:00:00Z"`
	Uptime   string `json:"uptime" example:"1h30m45s"`
	Database string `json:"database" example:"ok"`
	Cache    string `json:"cache,omitempty" example:"ok"`
}

// Health godoc
// @ID           getHealth
// @Summary      Health check
// @Description  Reports service liveness and the state of the database and cache
// @Tags         system
// @Produce      json
// @Success      200 {object} HealthResponse
// @Failure      503 {object} HealthResponse
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	log := logger.GetGinLogger(c)

	resp := HealthResponse{
		Status: "healthy",
		Time:   time.Now().Format(time.RFC3339),
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
	}
	status := http.StatusOK

	if h.db == nil || !h.db.Enabled() {
		// The scaffold runs without a database on purpose; a disabled
		// persistence layer is not a failure.
		resp.Database = "disabled"
	} else if err := h.db.Ping(); err != nil {
		log.Error("health check failed", zap.Error(err))
		resp.Database = "error"
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	} else {
		resp.Database = "ok"
	}

	if h.store != nil {
		if err := h.store.Ping(c.Request.Context()); err != nil {
			log.Warn("health check: cache unreachable", zap.Error(err))
			resp.Cache = "error"
			if resp.Status == "healthy" {
				resp.Status = "degraded"
			}
		} else {
			resp.Cache = "ok"
		}
	}

	c.JSON(status, resp)
}

// SystemInfoResponse is the diagnostics payload for /system/info.
// @name HandlerSystemInfoResponse
type SystemInfoResponse struct {
	Name        string `json:"name" example:"apibase"`
	Version     string `json:"version" example:"0.1.0"`
	Environment string `json:"environment" example:"development"`
	GoVersion   string `json:"go_version" example:"go1.25.5"`
	Uptime      string `json:"uptime" example:"1h30m45s"`
}

// GetSystemInfo godoc
// @ID           getSystemInfo
// @Summary      System information
// @Description  Reports build, runtime and uptime details for diagnostics
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[SystemInfoResponse]
// @Failure      500 {object} ErrorResponse
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:        h.cfg.App.Name,
		Version:     h.cfg.App.Version,
		Environment: h.cfg.App.Env,
		GoVersion:   runtime.Version(),
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// PingResponse answers the liveness ping.
// @name HandlerPingResponse
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping godoc
// @ID           pingSystem
// @Summary      API liveness ping
// @Description  Answers pong with a server timestamp
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[PingResponse]
// @Failure      500 {object} ErrorResponse
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	}))
}
