package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	mmetrics "guidance-replay/internal/metrics"
	"guidance-replay/internal/route"
)

// Replay is one trajectory to play back. Version changes when the route
// behind it changes; the refresher restarts a finished replay only then.
type Replay struct {
	ID         string
	RouteID    string
	Version    string
	Trajectory *route.Trajectory
}

type Publisher interface {
	PublishEvent(replayID, routeID string, ev LocationEvent) error
}

// Source lists the replays that should exist.
type Source interface {
	Replays(ctx context.Context) ([]Replay, error)
}

// Manager plays every replay on its own goroutine. Each tick of the wall
// clock advances the replay's emitter by one tick of route time.
type Manager struct {
	pub             Publisher
	tickInterval    time.Duration
	speedMultiplier float64
	loop            bool
	metrics         *mmetrics.Collector
	log             *zap.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc // replayID -> cancel
	seen    map[string]string             // replayID -> version
	wg      sync.WaitGroup

	refreshCancel context.CancelFunc
	refreshWG     sync.WaitGroup
}

func NewManager(pub Publisher, tickInterval time.Duration, speedMultiplier float64, loop bool, metrics *mmetrics.Collector, log *zap.Logger) *Manager {
	if speedMultiplier <= 0 {
		speedMultiplier = 1
	}
	return &Manager{
		pub:             pub,
		tickInterval:    tickInterval,
		speedMultiplier: speedMultiplier,
		loop:            loop,
		metrics:         metrics,
		log:             log,
		running:         make(map[string]context.CancelFunc),
		seen:            make(map[string]string),
	}
}

func (m *Manager) Start(ctx context.Context, replays []Replay) {
	for _, r := range replays {
		m.startReplay(ctx, r)
	}
}

// Active returns the number of running replays.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.running)
}

func (m *Manager) startReplay(parent context.Context, r Replay) {
	m.mu.Lock()
	if _, exists := m.running[r.ID]; exists {
		m.mu.Unlock()
		return
	}
	if v, ok := m.seen[r.ID]; ok && v == r.Version {
		m.mu.Unlock()
		return
	}
	m.seen[r.ID] = r.Version
	em, err := NewEmitter(r.Trajectory, m.tickInterval)
	if err != nil {
		m.mu.Unlock()
		m.log.Error("cannot replay route", zap.String("replay", r.ID), zap.Error(err))
		return
	}
	ctx, cancel := context.WithCancel(parent)
	m.running[r.ID] = cancel
	m.wg.Add(1)
	if m.metrics != nil {
		m.metrics.ReplaysStarted.Inc()
		m.metrics.ActiveReplays.Set(float64(len(m.running)))
	}
	m.mu.Unlock()

	m.log.Info("starting replay",
		zap.String("replay", r.ID),
		zap.String("route", r.RouteID),
		zap.Float64("duration_ms", em.Duration()),
		zap.Bool("speed_aware", em.SpeedAware()),
	)
	go func() {
		defer m.wg.Done()
		if err := m.runReplay(ctx, r, em); err != nil && !errors.Is(err, context.Canceled) {
			m.log.Error("replay error", zap.String("replay", r.ID), zap.Error(err))
		}
		m.mu.Lock()
		delete(m.running, r.ID)
		if m.metrics != nil {
			m.metrics.ReplaysFinished.Inc()
			m.metrics.ActiveReplays.Set(float64(len(m.running)))
		}
		m.mu.Unlock()
	}()
}

func (m *Manager) runReplay(ctx context.Context, r Replay, em *Emitter) error {
	wall := time.Duration(float64(em.Interval()) / m.speedMultiplier)
	if wall <= 0 {
		wall = time.Millisecond
	}
	tick := time.NewTicker(wall)
	defer tick.Stop()

	mode := "constant"
	if em.SpeedAware() {
		mode = "profile"
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			tickStart := time.Now()
			ev := em.Next()
			if ev == nil {
				if !m.loop {
					m.log.Info("finished replay", zap.String("replay", r.ID))
					return nil
				}
				em.Seek(0)
				if m.metrics != nil {
					m.metrics.ReplaysLooped.Inc()
				}
				m.log.Debug("restarting replay", zap.String("replay", r.ID))
				continue
			}
			if err := m.pub.PublishEvent(r.ID, r.RouteID, *ev); err != nil {
				m.log.Warn("publish error", zap.String("replay", r.ID), zap.Error(err))
			}
			if m.metrics != nil {
				m.metrics.EventsEmitted.WithLabelValues(mode).Inc()
				m.metrics.TickDuration.Observe(time.Since(tickStart).Seconds())
			}
		}
	}
}

// Wait blocks until every running replay has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) Stop() {
	if m.refreshCancel != nil {
		m.refreshCancel()
	}
	m.refreshWG.Wait()
	m.mu.Lock()
	for _, cancel := range m.running {
		cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// StartRefresher launches a background loop that periodically lists replays
// from src and starts the ones that are new or whose route changed.
func (m *Manager) StartRefresher(parent context.Context, src Source, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	m.refreshCancel = cancel
	m.refreshWG.Add(1)
	go func() {
		defer m.refreshWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.Refresh(ctx, src); err != nil {
					m.log.Error("refresh replays error", zap.Error(err))
				}
			}
		}
	}()
}

// Refresh starts every replay of src that is not running and has not been
// played at its current version.
func (m *Manager) Refresh(ctx context.Context, src Source) error {
	replays, err := src.Replays(ctx)
	if err != nil {
		return err
	}
	m.Start(ctx, replays)
	return nil
}
