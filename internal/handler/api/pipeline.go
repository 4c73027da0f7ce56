package api

import (
	"time"

	models "MarketPulse/internal/domain/models"
	"MarketPulse/internal/usecase"
	xhttp "MarketPulse/pkg/http"
	xlogger "MarketPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PipelineHandler exposes the pipeline's state over HTTP.
type PipelineHandler struct {
	logger    *xlogger.Logger
	orch      *usecase.Orchestrator
	hub       *TickHub
	startedAt time.Time
}

func NewPipelineHandler(logger *xlogger.Logger, orch *usecase.Orchestrator, hub *TickHub) *PipelineHandler {
	return &PipelineHandler{
		logger:    logger,
		orch:      orch,
		hub:       hub,
		startedAt: time.Now(),
	}
}

func (h *PipelineHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.GET("/ws/ticks", h.hub.Serve)

	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/history/:id", h.History)
	g.GET("/indicator", h.Indicator)
	g.GET("/alerts", h.Alerts)
}

func (h *PipelineHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *PipelineHandler) Status(c echo.Context) error {
	total, failed := h.orch.Stats()
	status := map[string]interface{}{
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"instruments":    h.orch.Instruments(),
		"ticks_total":    total,
		"ticks_failed":   failed,
		"ws_clients":     h.hub.Clients(),
	}
	if last := h.orch.LastResult(); last != nil {
		status["last_tick_at"] = last.At
		status["last_snapshot_count"] = len(last.Snapshots)
	}
	if collector := h.logger.Collector(); collector != nil {
		status["recent_errors"] = collector.Recent(10)
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *PipelineHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	id := c.Param("id")
	samples := h.orch.History(id)
	if len(samples) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no history for instrument '%s'", id))
	}

	// optional time range, RFC3339 or unix seconds
	if from, ok := xhttp.ParseTime(c.QueryParam("from")); ok {
		samples = trimBefore(samples, from.Unix())
	}
	if to, ok := xhttp.ParseTime(c.QueryParam("to")); ok {
		samples = trimAfter(samples, to.Unix())
	}
	if req.Limit > 0 && len(samples) > req.Limit {
		samples = samples[len(samples)-req.Limit:]
	}
	return xhttp.ListResponse(c, samples, int64(len(samples)))
}

func trimBefore(samples []models.Sample, ts int64) []models.Sample {
	for i, smp := range samples {
		if smp.Timestamp >= ts {
			return samples[i:]
		}
	}
	return nil
}

func trimAfter(samples []models.Sample, ts int64) []models.Sample {
	for i := len(samples) - 1; i >= 0; i-- {
		if samples[i].Timestamp <= ts {
			return samples[:i+1]
		}
	}
	return nil
}

func (h *PipelineHandler) Indicator(c echo.Context) error {
	last := h.orch.LastResult()
	if last == nil || last.Indicator == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("indicator not available yet"))
	}
	return xhttp.SuccessResponse(c, last.Indicator)
}

func (h *PipelineHandler) Alerts(c echo.Context) error {
	req := &models.AlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	alerts := h.orch.RecentAlerts(req.Limit)
	return xhttp.ListResponse(c, alerts, int64(len(alerts)))
}
