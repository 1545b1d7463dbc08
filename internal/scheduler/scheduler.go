package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-webpush/pkg/commands"
	"github.com/goliatone/go-webpush/pkg/config"
	"github.com/goliatone/go-webpush/pkg/interfaces/logger"
	"github.com/robfig/cron/v3"
)

var ErrCommandRequired = errors.New("scheduler: broadcast command is required")

// Scheduler fires the scheduled demo broadcast on a cron spec.
type Scheduler struct {
	mu      sync.Mutex
	cfg     config.ScheduleConfig
	cmd     command.Commander[commands.ScheduledBroadcast]
	log     logger.Logger
	parser  cron.Parser
	timeout time.Duration

	c  *cron.Cron
	id cron.EntryID
}

// Option customizes the scheduler.
type Option func(*Scheduler)

// WithRunTimeout bounds each scheduled run. Zero disables the bound.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.timeout = d
	}
}

// New validates the cron expression and timezone up front.
func New(cfg config.ScheduleConfig, cmd command.Commander[commands.ScheduledBroadcast], l logger.Logger, opts ...Option) (*Scheduler, error) {
	if cmd == nil {
		return nil, ErrCommandRequired
	}
	if l == nil {
		l = &logger.Nop{}
	}
	s := &Scheduler{
		cfg:     cfg,
		cmd:     cmd,
		log:     l,
		parser:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		timeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if strings.TrimSpace(s.cfg.Spec) == "" {
		s.cfg.Spec = config.Defaults().Schedule.Spec
	}
	if _, err := s.parser.Parse(s.cfg.Spec); err != nil {
		return nil, fmt.Errorf("scheduler: invalid spec %q: %w", s.cfg.Spec, err)
	}
	if _, err := loadLocation(s.cfg.Timezone); err != nil {
		return nil, err
	}
	return s, nil
}

// Enabled reports whether Start registers anything.
func (s *Scheduler) Enabled() bool { return s.cfg.Enabled }

// Start registers the broadcast job. It is a no-op when the schedule is disabled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil || !s.cfg.Enabled {
		return nil
	}
	loc, err := loadLocation(s.cfg.Timezone)
	if err != nil {
		return err
	}
	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))
	id, err := c.AddFunc(s.cfg.Spec, func() { s.Run(ctx) })
	if err != nil {
		return fmt.Errorf("scheduler: register %q: %w", s.cfg.Spec, err)
	}
	c.Start()
	s.c, s.id = c, id
	s.log.Info("scheduler started",
		logger.F("spec", s.cfg.Spec),
		logger.F("tz", loc.String()),
		logger.F("next", c.Entry(id).Next),
	)
	return nil
}

// Run executes one scheduled broadcast. Failures are logged.
func (s *Scheduler) Run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.cmd.Execute(ctx, commands.ScheduledBroadcast{}); err != nil {
		s.log.Error("scheduled broadcast failed", logger.Err(err))
		return
	}
	s.log.Debug("scheduled broadcast dispatched")
}

// Next returns the upcoming fire time, or zero when not running.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return time.Time{}
	}
	return s.c.Entry(s.id).Next
}

// Stop halts triggering and waits for a running job or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped")
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid timezone %q: %w", name, err)
	}
	return loc, nil
}
