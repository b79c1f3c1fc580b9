package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"ratewatch/internal/domain/models"
	domrepo "ratewatch/internal/domain/repository"
	"ratewatch/internal/service/ratelimit"
	"ratewatch/internal/usecase"
	pkgcache "ratewatch/pkg/cache"
	xhttp "ratewatch/pkg/http"
	xlogger "ratewatch/pkg/logger"
	"ratewatch/pkg/util"
)

// TriggerLimit bounds the manual ingestion trigger.
type TriggerLimit struct {
	Burst        float64
	RefillPerSec float64
}

// RatesEchoHandler exposes the read and trigger endpoints over Echo.
type RatesEchoHandler struct {
	logger  *xlogger.Logger
	query   *usecase.QueryUseCase
	ingest  *usecase.IngestUseCase
	store   domrepo.RateStore
	source  domrepo.PriceSource
	backend pkgcache.Service
	limiter *ratelimit.Limiter
	limit   TriggerLimit
}

func NewRatesEchoHandler(
	logger *xlogger.Logger,
	query *usecase.QueryUseCase,
	ingest *usecase.IngestUseCase,
	store domrepo.RateStore,
	source domrepo.PriceSource,
	backend pkgcache.Service,
	limit TriggerLimit,
) *RatesEchoHandler {
	if limit.Burst <= 0 {
		limit.Burst = 5
	}
	if limit.RefillPerSec <= 0 {
		limit.RefillPerSec = 1
	}
	return &RatesEchoHandler{
		logger:  logger,
		query:   query,
		ingest:  ingest,
		store:   store,
		source:  source,
		backend: backend,
		limiter: ratelimit.New(),
		limit:   limit,
	}
}

func (h *RatesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/rates/snapshot", h.Snapshot)
	g.GET("/rates/:pair/recent", h.Recent)
	g.GET("/rates/:pair/day/:date", h.Day)
	g.POST("/ingest", h.Ingest)
	e.GET("/health", h.Health)
}

func (h *RatesEchoHandler) Recent(c echo.Context) error {
	req := &models.RecentWindowRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	pair, ok := models.ParsePair(req.Pair)
	if !ok {
		return xhttp.AppErrorResponse(c, unsupportedPairError(req.Pair))
	}

	res, err := h.query.GetRecentWindow(c.Request().Context(), pair, time.Duration(req.Hours)*time.Hour)
	if err != nil {
		h.logger.Error("recent window query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if res.NoData {
		return xhttp.AppErrorResponse(c, noDataError(pair))
	}
	return xhttp.SuccessResponse(c, res.Window.Payload(time.Now()))
}

func (h *RatesEchoHandler) Day(c echo.Context) error {
	req := &models.PeriodRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	pair, ok := models.ParsePair(req.Pair)
	if !ok {
		return xhttp.AppErrorResponse(c, unsupportedPairError(req.Pair))
	}
	day, ok := util.ParseDay(req.Date)
	if !ok {
		return xhttp.AppErrorResponse(c,
			xhttp.BadRequestErrorf("malformed date %q, expected YYYY-MM-DD", req.Date))
	}

	res, err := h.query.GetForPeriod(c.Request().Context(), pair, day)
	if err != nil {
		if errors.Is(err, usecase.ErrFutureDate) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("date is in the future"))
		}
		h.logger.Error("period query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if res.NoData {
		return xhttp.AppErrorResponse(c, noDataError(pair))
	}
	return xhttp.SuccessResponse(c, res.Window.Payload(time.Now()))
}

func (h *RatesEchoHandler) Snapshot(c echo.Context) error {
	snapshot, err := h.query.GetLatestSnapshot(c.Request().Context())
	if err != nil {
		h.logger.Error("snapshot query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, snapshot.Payload())
}

func (h *RatesEchoHandler) Ingest(c echo.Context) error {
	if !h.limiter.Allow("ingest", h.limit.Burst, h.limit.RefillPerSec) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{
			"message": "ingestion trigger rate exceeded",
		})
	}

	req := &models.IngestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	params := models.IngestParams{InvalidateCache: true}
	if req.InvalidateCache != nil {
		params.InvalidateCache = *req.InvalidateCache
	}
	for _, raw := range req.Pairs {
		pair, ok := models.ParsePair(raw)
		if !ok {
			return xhttp.AppErrorResponse(c, unsupportedPairError(raw))
		}
		params.Pairs = append(params.Pairs, pair)
	}
	if req.RequestedAt != "" {
		t, ok := util.ParseTime(req.RequestedAt)
		if !ok {
			return xhttp.AppErrorResponse(c,
				xhttp.BadRequestErrorf("malformed requested_at %q", req.RequestedAt))
		}
		params.RequestedAt = t
	}

	summary := h.ingest.Run(c.Request().Context(), params)
	return xhttp.SuccessResponse(c, summary.Payload())
}

// healthReport is the tagged outcome of the dependency probes.
type healthReport struct {
	Healthy bool              `json:"healthy"`
	Checks  map[string]string `json:"checks"`
}

func (h *RatesEchoHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	report := healthReport{Healthy: true, Checks: make(map[string]string, 3)}

	if err := h.store.Health(ctx); err != nil {
		report.Healthy = false
		report.Checks["store"] = "unavailable"
	} else {
		report.Checks["store"] = "ok"
	}

	if h.source.IsAvailable(ctx) {
		report.Checks["price_source"] = "ok"
	} else {
		report.Healthy = false
		report.Checks["price_source"] = "unavailable"
	}

	// Cache is advisory; a failing backend degrades but does not fail health.
	if err := h.backend.Ping(ctx); err != nil {
		report.Checks["cache"] = "unavailable"
	} else {
		report.Checks["cache"] = "ok"
	}

	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, report)
}

func unsupportedPairError(raw string) *xhttp.AppError {
	return xhttp.NewAppError("ERR_UNSUPPORTED_PAIR", "pair",
		"unsupported pair: "+raw, http.StatusBadRequest)
}

func noDataError(pair models.Pair) *xhttp.AppError {
	return xhttp.NewAppError("ERR_NO_DATA", "",
		"no data available for "+string(pair), http.StatusNotFound)
}
