package api

import (
	"net/http"
	"time"

	"github.com/speakerlens/speakerlens/internal/database"
	"github.com/speakerlens/speakerlens/internal/notify"
)

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
}

type HealthHandler struct {
	db        *database.DB          // may be nil
	mqtt      *notify.MQTTPublisher // may be nil
	hasAPIKey bool
	version   string
	startTime time.Time
}

func NewHealthHandler(db *database.DB, mqtt *notify.MQTTPublisher, hasAPIKey bool, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		db:        db,
		mqtt:      mqtt,
		hasAPIKey: hasAPIKey,
		version:   version,
		startTime: startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "ok"

	if h.hasAPIKey {
		checks["provider_credentials"] = "configured"
	} else {
		checks["provider_credentials"] = "missing"
		status = "degraded"
	}

	if h.db != nil {
		if err := h.db.HealthCheck(r.Context()); err != nil {
			checks["database"] = "unreachable"
			status = "degraded"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "disabled"
	}

	if h.mqtt != nil {
		if h.mqtt.IsConnected() {
			checks["mqtt"] = "connected"
		} else {
			checks["mqtt"] = "disconnected"
			status = "degraded"
		}
	} else {
		checks["mqtt"] = "disabled"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	WriteJSON(w, code, HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	})
}
