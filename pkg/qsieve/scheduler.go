package qsieve

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// SieveJob is the work of one polynomial: Blocks consecutive ordinals
// starting at FirstOrdinal, mapped center-outward by BlockForOrdinal.
type SieveJob struct {
	Plan         *SievePlan
	Workers      []BlockSieveWorker
	Manager      RelationManager
	Target       int
	FirstOrdinal int
	Blocks       int
}

// SchedulerConfig configures work partitioning.
type SchedulerConfig struct {
	// DynamicThreshold is the blocks-per-worker ratio from which blocks are
	// claimed dynamically instead of being interleaved statically.
	DynamicThreshold int

	// ChunkSize is the number of blocks claimed at once in dynamic mode.
	ChunkSize int
}

// DefaultSchedulerConfig returns the default partitioning.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		DynamicThreshold: 4,
		ChunkSize:        1,
	}
}

// SchedulerStats counts work done across all jobs since the last reset.
type SchedulerStats struct {
	Blocks     int64
	Candidates int64
	Submitted  int64
}

// ParallelScheduler runs one goroutine per worker.
type ParallelScheduler struct {
	Config SchedulerConfig

	blocks     int64
	candidates int64
	submitted  int64
}

// NewParallelScheduler returns a scheduler with the default config.
func NewParallelScheduler() *ParallelScheduler {
	return &ParallelScheduler{Config: DefaultSchedulerConfig()}
}

// WithConfig sets the partitioning config.
func (s *ParallelScheduler) WithConfig(config SchedulerConfig) *ParallelScheduler {
	s.Config = config
	return s
}

func (s *ParallelScheduler) Name() string { return "parallel" }

// Stats returns the counters accumulated so far.
func (s *ParallelScheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Blocks:     atomic.LoadInt64(&s.blocks),
		Candidates: atomic.LoadInt64(&s.candidates),
		Submitted:  atomic.LoadInt64(&s.submitted),
	}
}

// Dynamic reports whether a job of the given shape claims blocks dynamically.
func (s *ParallelScheduler) Dynamic(blocks, workers int) bool {
	if workers <= 0 {
		return false
	}
	threshold := s.Config.DynamicThreshold
	if threshold <= 0 {
		threshold = DefaultSchedulerConfig().DynamicThreshold
	}
	return blocks/workers >= threshold
}

// Collect sieves the job's blocks. Workers stop as soon as the manager
// reaches the target. The first worker error cancels the others and is
// returned.
func (s *ParallelScheduler) Collect(ctx context.Context, job SieveJob) error {
	workers := len(job.Workers)
	if workers == 0 {
		return errors.Wrap(ErrConfig, "scheduler needs at least one worker")
	}
	if job.Blocks <= 0 || job.Manager.FullCount() >= job.Target {
		return nil
	}

	chunk := s.Config.ChunkSize
	if chunk <= 0 {
		chunk = 1
	}
	dynamic := s.Dynamic(job.Blocks, workers)

	var (
		stop   atomic.Bool
		cursor atomic.Int64
	)
	eg, egCtx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		worker := job.Workers[w]
		eg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					stop.Store(true)
					err = errors.Wrapf(ErrWorkerPanic, "worker %d: %v", w, r)
				}
			}()

			run := func(ordinal int) (bool, error) {
				if stop.Load() {
					return false, nil
				}
				if err := egCtx.Err(); err != nil {
					return false, err
				}
				if job.Manager.FullCount() >= job.Target {
					stop.Store(true)
					return false, nil
				}
				st, err := worker.SieveBlock(job.Plan, BlockForOrdinal(job.FirstOrdinal+ordinal), job.Manager)
				if err != nil {
					stop.Store(true)
					return false, err
				}
				atomic.AddInt64(&s.blocks, 1)
				atomic.AddInt64(&s.candidates, int64(st.Candidates))
				atomic.AddInt64(&s.submitted, int64(st.Submitted))
				return true, nil
			}

			if !dynamic {
				for o := w; o < job.Blocks; o += workers {
					if ok, err := run(o); !ok {
						return err
					}
				}
				return nil
			}
			for {
				first := int(cursor.Add(int64(chunk))) - chunk
				if first >= job.Blocks {
					return nil
				}
				for o := first; o < first+chunk && o < job.Blocks; o++ {
					if ok, err := run(o); !ok {
						return err
					}
				}
			}
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	if job.Manager.FullCount() >= job.Target {
		return nil
	}
	return ctx.Err()
}

// SequentialScheduler sieves every block in the calling goroutine with
// the first worker. Runs are reproducible, which helps when debugging a
// polynomial source.
type SequentialScheduler struct{}

// NewSequentialScheduler returns a single-goroutine scheduler.
func NewSequentialScheduler() *SequentialScheduler {
	return &SequentialScheduler{}
}

func (s *SequentialScheduler) Name() string { return "sequential" }

func (s *SequentialScheduler) Collect(ctx context.Context, job SieveJob) error {
	if len(job.Workers) == 0 {
		return errors.Wrap(ErrConfig, "scheduler needs at least one worker")
	}
	for o := 0; o < job.Blocks; o++ {
		if job.Manager.FullCount() >= job.Target {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := job.Workers[0].SieveBlock(job.Plan, BlockForOrdinal(job.FirstOrdinal+o), job.Manager); err != nil {
			return err
		}
	}
	return nil
}
