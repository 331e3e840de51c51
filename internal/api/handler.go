// Package api exposes the trajectory builder, the emitter and the maneuver
// locator over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"guidance-replay/internal/kinematics"
	"guidance-replay/internal/locator"
	"guidance-replay/internal/route"
	"guidance-replay/internal/sim"
)

// maxBody bounds a posted directions response.
const maxBody = 8 << 20

// RouteStore persists directions responses for the replay daemon.
type RouteStore interface {
	SaveRoute(ctx context.Context, routeID string, response []byte) error
}

// ReplayCounter reports running replays.
type ReplayCounter interface {
	Active() int
}

// ErrTooManyEvents rejects an events request whose duration and interval
// would produce more events than the handler allows.
var ErrTooManyEvents = errors.New("api: too many events for route duration and interval")

type Handler struct {
	spacing   route.Spacing
	rate      float64
	maxEvents int
	store   RouteStore
	replays ReplayCounter
	log     *zap.Logger
}

// NewHandler serves requests with spacing and rate as defaults. maxEvents
// bounds a single events response. store and replays may be nil.
func NewHandler(spacing route.Spacing, rate float64, maxEvents int, store RouteStore, replays ReplayCounter, log *zap.Logger) *Handler {
	return &Handler{spacing: spacing, rate: rate, maxEvents: maxEvents, store: store, replays: replays, log: log}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	v1 := r.Group("/api/v1")
	{
		v1.POST("/trajectory", h.Trajectory)
		v1.POST("/events", h.Events)
		v1.POST("/maneuvers", h.Maneuvers)
		if h.store != nil {
			v1.PUT("/routes/:id", h.SaveRoute)
		}
	}
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.replays != nil {
		body["active_replays"] = h.replays.Active()
	}
	c.JSON(http.StatusOK, body)
}

// Trajectory handles POST /api/v1/trajectory?spacing=&rate=.
func (h *Handler) Trajectory(c *gin.Context) {
	tr, ok := h.build(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, tr.Feature())
}

// Events handles POST /api/v1/events?spacing=&rate=&interval_ms=.
func (h *Handler) Events(c *gin.Context) {
	ms, err := strconv.Atoi(c.DefaultQuery("interval_ms", "1000"))
	if err != nil || ms <= 0 {
		respondError(c, http.StatusBadRequest, errors.New("interval_ms must be a positive integer"))
		return
	}
	tr, ok := h.build(c)
	if !ok {
		return
	}
	em, err := sim.NewEmitter(tr, time.Duration(ms)*time.Millisecond)
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, err)
		return
	}
	if n := math.Floor(em.Duration()/float64(ms)) + 1; n > float64(h.maxEvents) {
		respondError(c, http.StatusUnprocessableEntity, fmt.Errorf("%w: %.0f > %d", ErrTooManyEvents, n, h.maxEvents))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"duration": em.Duration(),
		"events":   em.All(),
	})
}

// Maneuvers handles POST /api/v1/maneuvers?spacing=&at=. With at (ms) the
// active step and position at that time are included.
func (h *Handler) Maneuvers(c *gin.Context) {
	spacing, ok := h.spacingParam(c)
	if !ok {
		return
	}
	d, ok := h.directions(c)
	if !ok {
		return
	}
	l, err := locator.New(d, spacing)
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	body := gin.H{"maneuvers": l.Maneuvers()}
	if v := c.Query("at"); v != "" {
		at, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(c, http.StatusBadRequest, errors.New("at must be a number of milliseconds"))
			return
		}
		body["step"] = l.ActiveStep(at)
		if p, ok := l.CoordsAt(at); ok {
			body["coords"] = p
		}
	}
	c.JSON(http.StatusOK, body)
}

// SaveRoute handles PUT /api/v1/routes/:id. The response must build into a
// trajectory before it is stored.
func (h *Handler) SaveRoute(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	d, err := route.Parse(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if _, err := route.Build(d, h.spacing); err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	id := c.Param("id")
	if err := h.store.SaveRoute(c.Request.Context(), id, raw); err != nil {
		h.log.Error("save route failed", zap.String("route", id), zap.Error(err))
		respondError(c, http.StatusInternalServerError, errors.New("could not store route"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"route_id": id})
}

func (h *Handler) build(c *gin.Context) (*route.Trajectory, bool) {
	spacing, ok := h.spacingParam(c)
	if !ok {
		return nil, false
	}
	rate := h.rate
	if v := c.Query("rate"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			respondError(c, http.StatusBadRequest, errors.New("rate must be a positive number"))
			return nil, false
		}
		rate = f
	}
	d, ok := h.directions(c)
	if !ok {
		return nil, false
	}
	b, err := route.NewBuilder(spacing, rate)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return nil, false
	}
	tr, err := b.Build(d)
	if err != nil {
		respondError(c, statusFor(err), err)
		return nil, false
	}
	return tr, true
}

func (h *Handler) spacingParam(c *gin.Context) (route.Spacing, bool) {
	v := c.Query("spacing")
	if v == "" {
		return h.spacing, true
	}
	sp, err := route.ParseSpacing(v)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return "", false
	}
	return sp, true
}

func (h *Handler) directions(c *gin.Context) (*route.Directions, bool) {
	d, err := route.Decode(io.LimitReader(c.Request.Body, maxBody))
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return nil, false
	}
	return d, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, route.ErrNoRoute), errors.Is(err, route.ErrUnsupportedMode):
		return http.StatusBadRequest
	case errors.Is(err, route.ErrShapeMismatch), errors.Is(err, route.ErrDurationMismatch),
		errors.Is(err, kinematics.ErrDomain):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, err error) {
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}
