// Package scheduler
package scheduler

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/stroomalert/stroomalert/app/services"
	businessflow "github.com/stroomalert/stroomalert/business_flow"
	"github.com/stroomalert/stroomalert/config"
	"github.com/stroomalert/stroomalert/models"
	"github.com/stroomalert/stroomalert/repository"
	"github.com/stroomalert/stroomalert/utils"
)

var (
	pollCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_poll_cycles_total",
		Help: "Total number of poll cycles by outcome",
	}, []string{"outcome"})

	pollDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "engine_poll_duration_seconds",
		Help:    "Duration of a full poll cycle",
		Buckets: prometheus.DefBuckets,
	})

	activeIncidentsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "engine_active_incidents",
		Help: "Number of currently tracked active outages",
	})
)

// PollScheduler drives the engine: on every tick it fetches an outage
// snapshot, reconciles it against tracked state, launches and pauses
// campaigns, and persists the resulting state. Only one cycle runs at a
// time; overlapping triggers are skipped, not queued.
type PollScheduler struct {
	source    services.OutageSource
	reconcile businessflow.ReconcileFlow
	campaigns businessflow.CampaignFlow
	state     *businessflow.EngineState
	stateRepo repository.StateRepository
	redis     *redis.Client
	cfg       *config.ProductionConfig
	logger    *log.Logger
	interval  time.Duration

	running atomic.Bool
}

func NewPollScheduler(
	source services.OutageSource,
	reconcile businessflow.ReconcileFlow,
	campaigns businessflow.CampaignFlow,
	state *businessflow.EngineState,
	stateRepo repository.StateRepository,
	redisClient *redis.Client,
	cfg *config.ProductionConfig,
	logger *log.Logger,
) *PollScheduler {
	interval := cfg.Engine.PollInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &PollScheduler{
		source:    source,
		reconcile: reconcile,
		campaigns: campaigns,
		state:     state,
		stateRepo: stateRepo,
		redis:     redisClient,
		cfg:       cfg,
		logger:    logger,
		interval:  interval,
	}
}

// Start launches the poll loop and returns a cancel func. The first cycle
// runs immediately so a restart does not wait a full interval to catch up.
func (s *PollScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx, "startup")

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx, "tick")
			}
		}
	}()

	return cancel
}

// TriggerNow runs one cycle on behalf of the operator API. It returns false
// without queueing when a cycle is already in flight.
func (s *PollScheduler) TriggerNow(ctx context.Context, reason string) bool {
	if s.running.Load() {
		return false
	}
	s.runOnce(ctx, reason)
	return true
}

func (s *PollScheduler) runOnce(ctx context.Context, trigger string) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Printf("scheduler: poll already in flight, skipping trigger %q", trigger)
		s.state.Events.Append(models.EventPollSkipped, "poll skipped: previous cycle still running", map[string]any{"trigger": trigger}, utils.UTCNow())
		pollCyclesTotal.WithLabelValues("skipped").Inc()
		return
	}
	defer s.running.Store(false)

	if !s.acquireLock(ctx) {
		s.logger.Printf("scheduler: poll lock held elsewhere, skipping trigger %q", trigger)
		pollCyclesTotal.WithLabelValues("skipped").Inc()
		return
	}
	defer s.releaseLock(ctx)

	started := time.Now()
	now := utils.UTCNow()

	snapshot, err := s.source.FetchSnapshot(ctx)
	if err != nil {
		// A failed fetch skips the whole cycle. Treating it as an empty
		// snapshot would mass-resolve every tracked outage.
		s.logger.Printf("scheduler: snapshot fetch failed, skipping cycle: %v", err)
		s.state.Events.Append(models.EventPollSkipped, "poll skipped: snapshot fetch failed", map[string]any{"error": err.Error(), "trigger": trigger}, now)
		pollCyclesTotal.WithLabelValues("fetch_failed").Inc()
		return
	}

	result, err := s.reconcile.Reconcile(ctx, snapshot, now)
	if err != nil {
		s.logger.Printf("scheduler: reconcile failed: %v", err)
		pollCyclesTotal.WithLabelValues("reconcile_failed").Inc()
		return
	}

	launched := s.campaigns.LaunchCampaigns(ctx, result.Created, now)
	paused := s.campaigns.PauseExpired(ctx, now)

	if err := s.persist(ctx); err != nil {
		s.logger.Printf("scheduler: state persistence failed: %v", err)
	}

	active, _ := s.state.Incidents.Counts()
	activeIncidentsGauge.Set(float64(active))
	pollCyclesTotal.WithLabelValues("completed").Inc()
	pollDurationSeconds.Observe(time.Since(started).Seconds())

	s.logger.Printf("scheduler: poll done (trigger=%s): %d new, %d updated, %d resolved, %d purged, %d campaigns launched, %d paused",
		trigger, len(result.Created), len(result.Updated), len(result.Resolved), result.Purged, launched, paused)
}

func (s *PollScheduler) persist(ctx context.Context) error {
	if s.stateRepo == nil {
		return nil
	}
	return s.stateRepo.SaveState(ctx, s.state.Snapshot())
}

// acquireLock takes the distributed poll lock when redis is configured.
// Without redis a single instance is assumed and the in-process guard is
// enough.
func (s *PollScheduler) acquireLock(ctx context.Context) bool {
	if s.redis == nil {
		return true
	}
	key := config.RedisKey(s.cfg.Cache, utils.PollLockCacheKey)
	ok, err := s.redis.SetNX(ctx, key, "1", s.interval).Result()
	if err != nil {
		s.logger.Printf("scheduler: poll lock check failed, proceeding without lock: %v", err)
		return true
	}
	return ok
}

func (s *PollScheduler) releaseLock(ctx context.Context) {
	if s.redis == nil {
		return
	}
	key := config.RedisKey(s.cfg.Cache, utils.PollLockCacheKey)
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		s.logger.Printf("scheduler: poll lock release failed: %v", err)
	}
}
