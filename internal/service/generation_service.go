package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-studykit-be/internal/dto"
	"ai-studykit-be/internal/entity"
	"ai-studykit-be/internal/pkg/logger"
	"ai-studykit-be/internal/pkg/serverutils"
	"ai-studykit-be/internal/repository/specification"
	"ai-studykit-be/internal/repository/unitofwork"
	"ai-studykit-be/pkg/ai/artifact"
	"ai-studykit-be/pkg/ai/coordinator"
	"ai-studykit-be/pkg/chunking"
	"ai-studykit-be/pkg/events"
	"ai-studykit-be/pkg/utils"

	"github.com/google/uuid"
)

const logModule = "GENERATION"

// maxSentenceRunes bounds a single embedding input. Longer sentences are
// windowed with a small overlap before chunking.
const (
	maxSentenceRunes    = 2000
	sentenceOverlapRune = 200
)

var (
	ErrJobNotFound     = fmt.Errorf("generation job: %w", serverutils.ErrNotFound)
	ErrUnsupportedKind = fmt.Errorf("unsupported artifact kind: %w", serverutils.ErrBadRequest)
	ErrNoSentences     = errors.New("content has no sentences")
	ErrJobInProgress   = fmt.Errorf("generation job is still in progress: %w", serverutils.ErrConflict)
)

// Embedder is the batch embedding surface; embedding.Batcher satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedAll(ctx context.Context, texts []string) ([][]float32, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IGenerationService interface {
	Submit(ctx context.Context, req *dto.CreateGenerationJobRequest) (*dto.GenerationJobResponse, error)
	Process(ctx context.Context, req *dto.PublishGenerationMessage) error
	Show(ctx context.Context, jobId uuid.UUID) (*dto.ShowGenerationJobResponse, error)
	ListJobs(ctx context.Context, req *dto.ListGenerationJobsRequest) ([]*dto.GenerationJobSummaryResponse, error)
	Delete(ctx context.Context, jobId uuid.UUID) error
	SearchRelated(ctx context.Context, moduleId uuid.UUID, query string, limit int) ([]*dto.RelatedArtifactResponse, error)
}

type GenerationDeps struct {
	UowFactory unitofwork.RepositoryFactory
	Publisher  IPublisherService
	Chunker    *chunking.Chunker
	// SentenceEmbedder feeds the chunker, ArtifactEmbedder the stored
	// artifact vectors and QueryEmbedder related-content search.
	SentenceEmbedder Embedder
	ArtifactEmbedder Embedder
	QueryEmbedder    Embedder
	Runners          map[artifact.Kind]ArtifactRunner
	Coordinator      coordinator.Options
	// Events is optional; a nil publisher skips domain events.
	Events EventPublisher
	Logger logger.ILogger
}

type generationService struct {
	deps GenerationDeps
	now  func() time.Time
}

func NewGenerationService(deps GenerationDeps) IGenerationService {
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	return &generationService{deps: deps, now: time.Now}
}

func (s *generationService) Submit(ctx context.Context, req *dto.CreateGenerationJobRequest) (*dto.GenerationJobResponse, error) {
	kind, err := artifact.ParseKind(req.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKind, err)
	}
	if _, ok := s.deps.Runners[kind]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}

	job := &entity.GenerationJob{
		Id:       uuid.New(),
		ModuleId: req.ModuleId,
		Kind:     kind,
		Status:   entity.JobQueued,
		Content:  req.Content,
		Params: entity.GenerationParams{
			LearningStyle:   artifact.LearningStyle(req.LearningStyle),
			StudyLevel:      artifact.StudyLevel(req.StudyLevel),
			Course:          req.Course,
			NoteTakingStyle: req.NoteTakingStyle,
			Plan:            req.Plan,
			QuizType:        artifact.QuizType(req.QuizType),
		},
		CreatedAt: s.now(),
	}

	uow := s.deps.UowFactory.NewUnitOfWork(ctx)
	if err := uow.GenerationJobRepository().Create(ctx, job); err != nil {
		return nil, err
	}

	if err := s.deps.Publisher.PublishGeneration(ctx, &dto.PublishGenerationMessage{JobId: job.Id}); err != nil {
		// Without a queued message the job would never run.
		_ = uow.GenerationJobRepository().UpdateStatus(ctx, job.Id, entity.JobFailed, "enqueue failed: "+err.Error())
		return nil, fmt.Errorf("enqueue job %s: %w", job.Id, err)
	}

	s.deps.Logger.Info(logModule, "Job submitted", map[string]interface{}{
		"job_id":    job.Id.String(),
		"module_id": job.ModuleId.String(),
		"kind":      string(job.Kind),
	})

	return &dto.GenerationJobResponse{
		Id:        job.Id,
		ModuleId:  job.ModuleId,
		Kind:      string(job.Kind),
		Status:    string(job.Status),
		CreatedAt: job.CreatedAt,
	}, nil
}

// Process runs a queued job to a terminal status. Job-level failures are
// recorded on the job and return nil; only errors worth redelivering the
// message for (storage, cancellation) are returned.
func (s *generationService) Process(ctx context.Context, req *dto.PublishGenerationMessage) error {
	jobs := s.deps.UowFactory.NewUnitOfWork(ctx).GenerationJobRepository()

	job, err := jobs.FindOne(ctx, specification.ByID{ID: req.JobId})
	if err != nil {
		return err
	}
	if job == nil {
		s.deps.Logger.Warn(logModule, "Job not found, dropping message", map[string]interface{}{
			"job_id": req.JobId.String(),
		})
		return nil
	}
	if job.Status.Terminal() {
		return nil
	}

	started := s.now()
	job.Status = entity.JobRunning
	job.StartedAt = &started
	if err := jobs.Update(ctx, job); err != nil {
		return err
	}

	res, runErr := s.run(ctx, job)
	if ctx.Err() != nil {
		// Left running; a redelivered message resumes from checkpoints.
		return ctx.Err()
	}

	return s.settle(ctx, job, res, runErr)
}

func (s *generationService) run(ctx context.Context, job *entity.GenerationJob) (*coordinator.Result, error) {
	runner, ok := s.deps.Runners[job.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, job.Kind)
	}

	sentences := boundSentences(utils.SplitSentences(job.Content))
	if len(sentences) == 0 {
		return nil, ErrNoSentences
	}

	embeddings, err := s.deps.SentenceEmbedder.EmbedAll(ctx, sentences)
	if err != nil {
		return nil, fmt.Errorf("embed sentences: %w", err)
	}

	chunks, err := s.deps.Chunker.Chunk(sentences, embeddings)
	if err != nil {
		return nil, fmt.Errorf("chunk content: %w", err)
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text()
	}
	job.ChunkCount = len(texts)

	s.deps.Logger.Info(logModule, "Content chunked", map[string]interface{}{
		"job_id":    job.Id.String(),
		"sentences": len(sentences),
		"chunks":    len(texts),
	})

	var ledger *frontLedger
	if job.Kind == artifact.KindFlashcards {
		ledger = newFrontLedger()
	}

	cj := coordinator.Job{
		ID:     job.Id.String(),
		Chunks: texts,
		Task: func(ctx context.Context, index int, chunk string) (artifact.Artifact, error) {
			var prior []string
			if ledger != nil {
				prior = ledger.Snapshot()
			}
			return runner.Run(ctx, RunRequest{
				ThreadID: threadID(job.Id, index),
				Params:   job.Params.ForChunk(chunk, prior),
				QuizType: job.Params.QuizType,
			})
		},
		Sink: &artifactSink{factory: s.deps.UowFactory, job: job},
		OnAccepted: func(_ int, a artifact.Artifact) {
			if ledger != nil && a.Flashcards != nil {
				ledger.Add(a.Flashcards.Fronts()...)
			}
		},
	}

	return coordinator.New(s.deps.Coordinator, s.deps.ArtifactEmbedder, s.deps.Logger).Run(ctx, cj)
}

func (s *generationService) settle(ctx context.Context, job *entity.GenerationJob, res *coordinator.Result, runErr error) error {
	finished := s.now()
	job.FinishedAt = &finished
	job.ErrorMessage = ""
	accepted := 0

	if res != nil {
		accepted = len(res.Refs)
		job.FailedChunks = len(res.Failures)
		job.DocumentEmbedding = res.DocumentEmbedding
	}

	switch {
	case runErr != nil:
		job.Status = entity.JobFailed
		job.ErrorMessage = runErr.Error()
	case job.FailedChunks > 0:
		job.Status = entity.JobPartial
	default:
		job.Status = entity.JobCompleted
	}

	if err := s.deps.UowFactory.NewUnitOfWork(ctx).GenerationJobRepository().Update(ctx, job); err != nil {
		return err
	}

	details := map[string]interface{}{
		"job_id":        job.Id.String(),
		"status":        string(job.Status),
		"chunks":        job.ChunkCount,
		"accepted":      accepted,
		"failed_chunks": job.FailedChunks,
	}
	if runErr != nil {
		details["error"] = runErr.Error()
		s.deps.Logger.Error(logModule, "Job failed", details)
	} else {
		s.deps.Logger.Info(logModule, "Job settled", details)
	}

	s.publishOutcome(ctx, job, accepted)
	return nil
}

func (s *generationService) publishOutcome(ctx context.Context, job *entity.GenerationJob, accepted int) {
	if s.deps.Events == nil {
		return
	}
	event := events.NewGenerationEvent(events.GenerationOutcome{
		JobID:        job.Id.String(),
		ModuleID:     job.ModuleId.String(),
		Kind:         string(job.Kind),
		Status:       string(job.Status),
		Accepted:     accepted,
		FailedChunks: job.FailedChunks,
		Error:        job.ErrorMessage,
	}, s.now())
	if err := s.deps.Events.Publish(ctx, event); err != nil {
		s.deps.Logger.Warn(logModule, "Failed to publish generation event", map[string]interface{}{
			"job_id": job.Id.String(),
			"error":  err.Error(),
		})
	}
}

func (s *generationService) Show(ctx context.Context, jobId uuid.UUID) (*dto.ShowGenerationJobResponse, error) {
	uow := s.deps.UowFactory.NewUnitOfWork(ctx)

	job, err := uow.GenerationJobRepository().FindOne(ctx, specification.ByID{ID: jobId})
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobId)
	}

	stored, err := uow.GeneratedArtifactRepository().FindAll(ctx,
		specification.ByJobID{JobID: jobId},
		specification.ChunkOrder{},
	)
	if err != nil {
		return nil, err
	}

	artifacts := make([]*dto.GeneratedArtifactResponse, len(stored))
	for i, a := range stored {
		artifacts[i] = &dto.GeneratedArtifactResponse{
			Id:         a.Id,
			ChunkIndex: a.ChunkIndex,
			Artifact:   a.Artifact,
		}
	}

	return &dto.ShowGenerationJobResponse{
		Id:           job.Id,
		ModuleId:     job.ModuleId,
		Kind:         string(job.Kind),
		Status:       string(job.Status),
		ChunkCount:   job.ChunkCount,
		FailedChunks: job.FailedChunks,
		ErrorMessage: job.ErrorMessage,
		Artifacts:    artifacts,
		CreatedAt:    job.CreatedAt,
		FinishedAt:   job.FinishedAt,
	}, nil
}

func (s *generationService) ListJobs(ctx context.Context, req *dto.ListGenerationJobsRequest) ([]*dto.GenerationJobSummaryResponse, error) {
	specs := []specification.Specification{specification.ByModuleID{ModuleID: req.ModuleId}}
	if req.Status != "" {
		specs = append(specs, specification.ByStatus{Statuses: []string{req.Status}})
	}
	specs = append(specs, specification.Newest{}, specification.Pagination{Limit: req.Limit, Offset: req.Offset})

	jobs, err := s.deps.UowFactory.NewUnitOfWork(ctx).GenerationJobRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.GenerationJobSummaryResponse, len(jobs))
	for i, job := range jobs {
		res[i] = &dto.GenerationJobSummaryResponse{
			Id:           job.Id,
			Kind:         string(job.Kind),
			Status:       string(job.Status),
			ChunkCount:   job.ChunkCount,
			FailedChunks: job.FailedChunks,
			CreatedAt:    job.CreatedAt,
			FinishedAt:   job.FinishedAt,
		}
	}
	return res, nil
}

// Delete removes a settled job together with its artifacts. Queued and
// running jobs are rejected so a worker never writes into a deleted job.
func (s *generationService) Delete(ctx context.Context, jobId uuid.UUID) error {
	uow := s.deps.UowFactory.NewUnitOfWork(ctx)

	job, err := uow.GenerationJobRepository().FindOne(ctx, specification.ByID{ID: jobId})
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobId)
	}
	if !job.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrJobInProgress, jobId, job.Status)
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.GeneratedArtifactRepository().DeleteByJobId(ctx, jobId); err != nil {
		return err
	}
	if err := uow.GenerationJobRepository().Delete(ctx, jobId); err != nil {
		return err
	}

	return uow.Commit()
}

func (s *generationService) SearchRelated(ctx context.Context, moduleId uuid.UUID, query string, limit int) ([]*dto.RelatedArtifactResponse, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", serverutils.ErrBadRequest)
	}

	vec, err := s.deps.QueryEmbedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored, err := s.deps.UowFactory.NewUnitOfWork(ctx).GeneratedArtifactRepository().SearchSimilar(ctx, vec, moduleId, limit)
	if err != nil {
		return nil, err
	}

	out := make([]*dto.RelatedArtifactResponse, len(scored))
	for i, sa := range scored {
		out[i] = &dto.RelatedArtifactResponse{
			Id:         sa.Artifact.Id,
			JobId:      sa.Artifact.JobId,
			ChunkIndex: sa.Artifact.ChunkIndex,
			Kind:       string(sa.Artifact.Artifact.Kind),
			Document:   sa.Artifact.Document,
			Similarity: sa.Similarity,
		}
	}
	return out, nil
}

// threadID keys a chunk's checkpoints; it is stable across retries and redeliveries.
func boundSentences(sentences []string) []string {
	out := make([]string, 0, len(sentences))
	for _, s := range sentences {
		out = append(out, utils.SplitText(s, maxSentenceRunes, sentenceOverlapRune)...)
	}
	return out
}

func threadID(jobId uuid.UUID, index int) string {
	return fmt.Sprintf("%s:%d", jobId, index)
}

// artifactSink persists accepted chunks for one job.
type artifactSink struct {
	factory unitofwork.RepositoryFactory
	job     *entity.GenerationJob
}

func (s *artifactSink) Persist(ctx context.Context, rec coordinator.Record) (string, error) {
	a := &entity.GeneratedArtifact{
		JobId:          s.job.Id,
		ModuleId:       s.job.ModuleId,
		ChunkIndex:     rec.Index,
		Artifact:       rec.Artifact,
		Document:       rec.Artifact.Text(),
		EmbeddingValue: rec.Embedding,
	}
	if err := s.factory.NewUnitOfWork(ctx).GeneratedArtifactRepository().Upsert(ctx, a); err != nil {
		return "", err
	}
	return a.Id.String(), nil
}
