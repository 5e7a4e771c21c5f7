// Package coordinator fans per-chunk generation out over a bounded pool,
// retries failed chunks with exponential backoff, persists accepted
// artifacts and folds their embeddings into one document vector.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"ai-studykit-be/internal/pkg/logger"
	"ai-studykit-be/pkg/ai/artifact"
	"ai-studykit-be/pkg/vector"
	"ai-studykit-be/pkg/workflow"
)

const logModule = "COORDINATOR"

var (
	ErrChunkProcessing    = errors.New("coordinator: chunk processing failed")
	ErrNoContentGenerated = errors.New("coordinator: no content generated")
)

// Task runs one generation graph for one chunk.
type Task func(ctx context.Context, index int, chunk string) (artifact.Artifact, error)

// Embedder turns an accepted artifact's text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Record struct {
	JobID     string
	Index     int
	Artifact  artifact.Artifact
	Embedding []float32
}

// Sink stores one accepted artifact and returns an opaque reference to it.
type Sink interface {
	Persist(ctx context.Context, rec Record) (string, error)
}

type Job struct {
	ID     string
	Chunks []string
	Task   Task
	Sink   Sink
	// OnAccepted runs on the collector goroutine after a chunk was persisted.
	// In sequential mode it runs before the next chunk is dispatched.
	OnAccepted func(index int, a artifact.Artifact)
}

type ChunkRef struct {
	Index int    `json:"index"`
	Ref   string `json:"ref"`
}

// ChunkFailure records a chunk that exhausted its retries.
type ChunkFailure struct {
	Index    int
	Attempts int
	Err      error
}

func (f *ChunkFailure) Error() string {
	return fmt.Sprintf("%v: chunk %d after %d attempts: %v", ErrChunkProcessing, f.Index, f.Attempts, f.Err)
}

func (f *ChunkFailure) Unwrap() []error {
	return []error{ErrChunkProcessing, f.Err}
}

// Result lists accepted chunks in chunk order. Refs[i] and Embeddings[i]
// belong to the same chunk.
type Result struct {
	JobID             string
	Refs              []ChunkRef
	Embeddings        [][]float32
	Failures          []*ChunkFailure
	DocumentEmbedding []float32
}

type Options struct {
	InitialInterval     time.Duration
	Multiplier          float64
	MaxInterval         time.Duration
	RandomizationFactor float64
	// MaxFailures is the number of attempts per chunk before it is given up.
	MaxFailures uint
	// UnitTimeout bounds one attempt of one chunk.
	UnitTimeout time.Duration
	Concurrency int
	Sequential  bool
	// Permanent reports errors that retrying cannot fix.
	Permanent func(error) bool
}

func DefaultOptions() Options {
	return Options{
		InitialInterval:     500 * time.Millisecond,
		Multiplier:          2,
		MaxInterval:         10 * time.Second,
		RandomizationFactor: 0.2,
		MaxFailures:         3,
		UnitTimeout:         2 * time.Minute,
		Concurrency:         4,
		Permanent:           DefaultPermanent,
	}
}

// DefaultPermanent treats broken graphs and runaway loops as not retryable.
func DefaultPermanent(err error) bool {
	return errors.Is(err, workflow.ErrInvalidGraph) || errors.Is(err, workflow.ErrMaxSteps)
}

type Coordinator struct {
	opts     Options
	embedder Embedder
	logger   logger.ILogger
}

func New(opts Options, embedder Embedder, log logger.ILogger) *Coordinator {
	def := DefaultOptions()
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = def.InitialInterval
	}
	if opts.Multiplier < 1 {
		opts.Multiplier = def.Multiplier
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = def.MaxInterval
	}
	if opts.RandomizationFactor < 0 || opts.RandomizationFactor > 1 {
		opts.RandomizationFactor = def.RandomizationFactor
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = def.MaxFailures
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = def.Concurrency
	}
	if opts.Permanent == nil {
		opts.Permanent = DefaultPermanent
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Coordinator{opts: opts, embedder: embedder, logger: log}
}

type outcome struct {
	index     int
	ref       string
	artifact  artifact.Artifact
	embedding []float32
	failure   *ChunkFailure
}

// Run processes every chunk of job. A failed chunk is excluded, never fatal;
// the job fails only with ErrNoContentGenerated when nothing was accepted,
// or with ctx.Err() when cancelled.
func (c *Coordinator) Run(ctx context.Context, job Job) (*Result, error) {
	if job.Task == nil || job.Sink == nil {
		return nil, errors.New("coordinator: job needs a task and a sink")
	}

	var (
		outcomes []outcome
		err      error
	)
	if c.opts.Sequential {
		outcomes, err = c.runSequential(ctx, job)
	} else {
		outcomes, err = c.runParallel(ctx, job)
	}
	if err != nil {
		return nil, err
	}

	return c.aggregate(job, outcomes)
}

func (c *Coordinator) runSequential(ctx context.Context, job Job) ([]outcome, error) {
	outcomes := make([]outcome, 0, len(job.Chunks))
	for i, chunk := range job.Chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o := c.process(ctx, job, i, chunk)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.accept(job, o)
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

// runParallel dispatches units from one goroutine and collects their
// outcomes on this one; bookkeeping has a single writer.
func (c *Coordinator) runParallel(ctx context.Context, job Job) ([]outcome, error) {
	results := make(chan outcome)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	go func() {
		defer close(results)
		for i, chunk := range job.Chunks {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				o := c.process(gctx, job, i, chunk)
				select {
				case results <- o:
				case <-gctx.Done():
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	outcomes := make([]outcome, 0, len(job.Chunks))
	for o := range results {
		c.accept(job, o)
		outcomes = append(outcomes, o)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (c *Coordinator) accept(job Job, o outcome) {
	if o.failure != nil {
		c.logger.Warn(logModule, "chunk excluded after retries", map[string]interface{}{
			"job_id":   job.ID,
			"index":    o.index,
			"attempts": o.failure.Attempts,
			"error":    o.failure.Err.Error(),
		})
		return
	}
	c.logger.Debug(logModule, "chunk accepted", map[string]interface{}{
		"job_id": job.ID,
		"index":  o.index,
		"ref":    o.ref,
	})
	if job.OnAccepted != nil {
		job.OnAccepted(o.index, o.artifact)
	}
}

// process runs generate -> validate -> embed -> persist for one chunk with retries.
func (c *Coordinator) process(ctx context.Context, job Job, index int, chunk string) outcome {
	attempts := 0
	var accepted outcome

	op := func() (struct{}, error) {
		attempts++
		unitCtx, cancel := c.unitContext(ctx)
		defer cancel()

		a, err := job.Task(unitCtx, index, chunk)
		if err != nil {
			return struct{}{}, c.classify(ctx, err)
		}
		if err := a.Validate(); err != nil {
			return struct{}{}, c.classify(ctx, err)
		}

		embedding, err := c.embedder.Embed(unitCtx, a.Text())
		if err != nil {
			return struct{}{}, c.classify(ctx, fmt.Errorf("embed artifact: %w", err))
		}

		ref, err := job.Sink.Persist(unitCtx, Record{JobID: job.ID, Index: index, Artifact: a, Embedding: embedding})
		if err != nil {
			return struct{}{}, c.classify(ctx, fmt.Errorf("persist artifact: %w", err))
		}

		accepted = outcome{index: index, ref: ref, artifact: a, embedding: embedding}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.opts.MaxFailures),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.Info(logModule, "retrying chunk", map[string]interface{}{
				"job_id":  job.ID,
				"index":   index,
				"attempt": attempts,
				"wait_ms": wait.Milliseconds(),
				"error":   err.Error(),
			})
		}),
	)
	if err != nil {
		return outcome{index: index, failure: &ChunkFailure{Index: index, Attempts: attempts, Err: err}}
	}
	return accepted
}

func (c *Coordinator) unitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.UnitTimeout > 0 {
		return context.WithTimeout(ctx, c.opts.UnitTimeout)
	}
	return context.WithCancel(ctx)
}

// classify marks errors that must not be retried.
func (c *Coordinator) classify(parent context.Context, err error) error {
	if parent.Err() != nil {
		return backoff.Permanent(parent.Err())
	}
	if c.opts.Permanent(err) {
		return backoff.Permanent(err)
	}
	return err
}

func (c *Coordinator) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialInterval
	b.Multiplier = c.opts.Multiplier
	b.MaxInterval = c.opts.MaxInterval
	b.RandomizationFactor = c.opts.RandomizationFactor
	return b
}

func (c *Coordinator) aggregate(job Job, outcomes []outcome) (*Result, error) {
	slices.SortFunc(outcomes, func(a, b outcome) int { return a.index - b.index })

	res := &Result{
		JobID:      job.ID,
		Refs:       make([]ChunkRef, 0, len(outcomes)),
		Embeddings: make([][]float32, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		if o.failure != nil {
			res.Failures = append(res.Failures, o.failure)
			continue
		}
		res.Refs = append(res.Refs, ChunkRef{Index: o.index, Ref: o.ref})
		res.Embeddings = append(res.Embeddings, o.embedding)
	}

	c.logger.Info(logModule, "job settled", map[string]interface{}{
		"job_id":   job.ID,
		"chunks":   len(job.Chunks),
		"accepted": len(res.Refs),
		"failed":   len(res.Failures),
	})

	if len(res.Embeddings) == 0 {
		return res, fmt.Errorf("%w: job %s: %d of %d chunks failed", ErrNoContentGenerated, job.ID, len(res.Failures), len(job.Chunks))
	}

	doc, err := vector.MeanNormalized(res.Embeddings)
	if err != nil {
		return res, fmt.Errorf("aggregate embeddings: %w", err)
	}
	res.DocumentEmbedding = doc
	return res, nil
}
