package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/labstack/gommon/log"

	"uk.co.dudmesh.viberrelay/internal/model"
)

const refreshJobName = "refresh-bots"

type Config interface {
	RefreshInterval() time.Duration
}

type Refresher interface {
	RefreshAll(ctx context.Context) []model.BotState
}

// Scheduler periodically re-probes every bot so cached status does not go
// stale between client requests.
type Scheduler struct {
	scheduler gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *log.Logger
}

func New(config Config, refresher Refresher) (*Scheduler, error) {
	logger := log.New("scheduler")

	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(&gocronLogger{logger: logger}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sched := &Scheduler{
		scheduler: s,
		refresher: refresher,
		interval:  config.RefreshInterval(),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}

	if sched.interval <= 0 {
		logger.Info("periodic bot refresh disabled")
		return sched, nil
	}

	_, err = s.NewJob(
		gocron.DurationJob(sched.interval),
		gocron.NewTask(sched.refresh),
		gocron.WithName(refreshJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("scheduling %s: %w", refreshJobName, err)
	}
	return sched, nil
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(s.ctx, s.interval)
	defer cancel()

	start := time.Now()
	states := s.refresher.RefreshAll(ctx)

	active := 0
	for _, state := range states {
		if state.Status == model.BotStatusActive {
			active++
		}
	}
	s.logger.Debugf("refreshed %d bots in %s, %d active", len(states), time.Since(start), active)
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
	if s.interval > 0 {
		s.logger.Infof("refreshing bots every %s", s.interval)
	}
}

// Shutdown cancels a running refresh and waits for it to return.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("shutting down scheduler: %w", err)
	}
	return nil
}

type gocronLogger struct {
	logger *log.Logger
}

func (l *gocronLogger) Debug(msg string, args ...any) { l.logger.Debugf("%s %v", msg, args) }
func (l *gocronLogger) Info(msg string, args ...any)  { l.logger.Infof("%s %v", msg, args) }
func (l *gocronLogger) Warn(msg string, args ...any)  { l.logger.Warnf("%s %v", msg, args) }
func (l *gocronLogger) Error(msg string, args ...any) { l.logger.Errorf("%s %v", msg, args) }
