package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

type CompetitionJobs interface {
	RecomputeActive(ctx context.Context) error
	EndExpired(ctx context.Context) (int, error)
}

type PaymentJobs interface {
	ExpirePayments(ctx context.Context) (int64, error)
}

type Sweeper interface {
	Sweep() int
}

// Scheduler runs the periodic maintenance jobs: competition ranks and
// lifecycle, pending payment expiry and rate-limit counter cleanup.
type Scheduler struct {
	sched        gocron.Scheduler
	competitions CompetitionJobs
	payments     PaymentJobs
	sweeper      Sweeper
	timeout      time.Duration
}

func New(loc *time.Location, competitions CompetitionJobs, payments PaymentJobs, sweeper Sweeper) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}
	s := &Scheduler{
		sched:        sched,
		competitions: competitions,
		payments:     payments,
		sweeper:      sweeper,
		timeout:      30 * time.Second,
	}
	jobs := []struct {
		name  string
		every time.Duration
		fn    func(context.Context)
	}{
		{"competitions", time.Minute, s.runCompetitions},
		{"ratelimit-sweep", time.Minute, s.runSweep},
		{"payment-expiry", 5 * time.Minute, s.runPaymentExpiry},
	}
	for _, j := range jobs {
		fn := j.fn
		_, err := sched.NewJob(
			gocron.DurationJob(j.every),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
				defer cancel()
				fn(ctx)
			}),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", j.name, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
	log.Info().Str("component", "scheduler").Int("jobs", len(s.sched.Jobs())).Msg("scheduler started")
}

func (s *Scheduler) Stop() error {
	return s.sched.Shutdown()
}

func (s *Scheduler) runCompetitions(ctx context.Context) {
	if s.competitions == nil {
		return
	}
	// End first so finished competitions get their final ranks from EndExpired.
	ended, err := s.competitions.EndExpired(ctx)
	if err != nil {
		log.Error().Err(err).Str("component", "scheduler").Msg("end expired competitions failed")
	} else if ended > 0 {
		log.Info().Str("component", "scheduler").Int("ended", ended).Msg("competitions ended")
	}
	if err := s.competitions.RecomputeActive(ctx); err != nil {
		log.Error().Err(err).Str("component", "scheduler").Msg("recompute competition ranks failed")
	}
}

func (s *Scheduler) runPaymentExpiry(ctx context.Context) {
	if s.payments == nil {
		return
	}
	n, err := s.payments.ExpirePayments(ctx)
	if err != nil {
		log.Error().Err(err).Str("component", "scheduler").Msg("expire payments failed")
		return
	}
	if n > 0 {
		log.Info().Str("component", "scheduler").Int64("expired", n).Msg("pending payments expired")
	}
}

func (s *Scheduler) runSweep(context.Context) {
	if s.sweeper == nil {
		return
	}
	if n := s.sweeper.Sweep(); n > 0 {
		log.Debug().Str("component", "scheduler").Int("removed", n).Msg("rate-limit counters swept")
	}
}
