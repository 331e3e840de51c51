package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"guidance-replay/internal/metrics"
	"guidance-replay/internal/route"
	"guidance-replay/internal/sim"
)

// RouteSource serves the routes table as replays, one per route_id. With
// RouteID set only that route is read.
type RouteSource struct {
	DB      *sql.DB
	Builder *route.Builder
	RouteID string
	Metrics *metrics.Collector
	Log     *zap.Logger
}

func (s *RouteSource) Replays(ctx context.Context) ([]sim.Replay, error) {
	var recs []RouteRecord
	if s.RouteID != "" {
		r, err := FetchRoute(ctx, s.DB, s.RouteID)
		if err != nil {
			return nil, err
		}
		recs = []RouteRecord{r}
	} else {
		var err error
		if recs, err = FetchRoutes(ctx, s.DB); err != nil {
			return nil, err
		}
	}

	out := make([]sim.Replay, 0, len(recs))
	for _, rec := range recs {
		tr, err := s.build(rec)
		if err != nil {
			s.Metrics.BuildErrorInc("db")
			s.Log.Warn("skipping route", zap.String("route", rec.RouteID), zap.Error(err))
			continue
		}
		out = append(out, sim.Replay{
			ID:         rec.RouteID,
			RouteID:    rec.RouteID,
			Version:    rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
			Trajectory: tr,
		})
	}
	return out, nil
}

func (s *RouteSource) build(rec RouteRecord) (*route.Trajectory, error) {
	d, err := route.Parse(rec.Response)
	if err != nil {
		return nil, err
	}
	return s.Builder.Build(d)
}
