package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-studykit-be/internal/dto"
	"ai-studykit-be/internal/entity"
	"ai-studykit-be/internal/pkg/logger"
	"ai-studykit-be/internal/pkg/serverutils"
	"ai-studykit-be/internal/repository/contract"
	"ai-studykit-be/internal/repository/specification"
	"ai-studykit-be/internal/repository/unitofwork"
	"ai-studykit-be/pkg/ai/artifact"
	"ai-studykit-be/pkg/ai/coordinator"
	"ai-studykit-be/pkg/chunking"
	"ai-studykit-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- in-memory persistence ---

type memoryStore struct {
	mu        sync.Mutex
	commits   int
	jobs      map[uuid.UUID]entity.GenerationJob
	artifacts map[string]entity.GeneratedArtifact
	scored    []*contract.ScoredArtifact
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		jobs:      make(map[uuid.UUID]entity.GenerationJob),
		artifacts: make(map[string]entity.GeneratedArtifact),
	}
}

func (s *memoryStore) job(id uuid.UUID) entity.GenerationJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *memoryStore) NewUnitOfWork(context.Context) unitofwork.UnitOfWork { return memoryUow{s} }

type memoryUow struct{ s *memoryStore }

func (memoryUow) Begin(context.Context) error { return nil }
func (u memoryUow) Commit() error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.s.commits++
	return nil
}
func (memoryUow) Rollback() error { return nil }
func (u memoryUow) GenerationJobRepository() contract.GenerationJobRepository {
	return memoryJobs{u.s}
}
func (u memoryUow) GeneratedArtifactRepository() contract.GeneratedArtifactRepository {
	return memoryArtifacts{u.s}
}

type memoryJobs struct{ s *memoryStore }

func (r memoryJobs) Create(_ context.Context, job *entity.GenerationJob) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.jobs[job.Id] = *job
	return nil
}

func (r memoryJobs) Update(ctx context.Context, job *entity.GenerationJob) error {
	return r.Create(ctx, job)
}

func (r memoryJobs) UpdateStatus(_ context.Context, id uuid.UUID, status entity.JobStatus, msg string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j := r.s.jobs[id]
	j.Status = status
	j.ErrorMessage = msg
	r.s.jobs[id] = j
	return nil
}

func (r memoryJobs) FindOne(_ context.Context, specs ...specification.Specification) (*entity.GenerationJob, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			if j, found := r.s.jobs[byID.ID]; found {
				return &j, nil
			}
		}
	}
	return nil, nil
}

func (r memoryJobs) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.GenerationJob, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var moduleID uuid.UUID
	var statuses []string
	limit := -1
	for _, spec := range specs {
		switch sp := spec.(type) {
		case specification.ByModuleID:
			moduleID = sp.ModuleID
		case specification.ByStatus:
			statuses = sp.Statuses
		case specification.Pagination:
			limit = sp.Limit
		}
	}
	var out []*entity.GenerationJob
	for _, j := range r.s.jobs {
		if j.ModuleId != moduleID {
			continue
		}
		if statuses != nil && !slices.Contains(statuses, string(j.Status)) {
			continue
		}
		out = append(out, &j)
	}
	slices.SortFunc(out, func(a, b *entity.GenerationJob) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memoryJobs) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.jobs, id)
	return nil
}

type memoryArtifacts struct{ s *memoryStore }

func (r memoryArtifacts) Upsert(_ context.Context, a *entity.GeneratedArtifact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := fmt.Sprintf("%s:%d", a.JobId, a.ChunkIndex)
	if existing, ok := r.s.artifacts[key]; ok {
		a.Id = existing.Id
	} else {
		a.Id = uuid.New()
	}
	r.s.artifacts[key] = *a
	return nil
}

func (r memoryArtifacts) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.GeneratedArtifact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var jobID uuid.UUID
	for _, spec := range specs {
		if byJob, ok := spec.(specification.ByJobID); ok {
			jobID = byJob.JobID
		}
	}
	var out []*entity.GeneratedArtifact
	for _, a := range r.s.artifacts {
		if a.JobId == jobID {
			out = append(out, &a)
		}
	}
	slices.SortFunc(out, func(a, b *entity.GeneratedArtifact) int { return a.ChunkIndex - b.ChunkIndex })
	return out, nil
}

func (r memoryArtifacts) Count(context.Context, ...specification.Specification) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.artifacts)), nil
}

func (r memoryArtifacts) DeleteByJobId(_ context.Context, jobId uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for key, a := range r.s.artifacts {
		if a.JobId == jobId {
			delete(r.s.artifacts, key)
		}
	}
	return nil
}

func (r memoryArtifacts) SearchSimilar(context.Context, []float32, uuid.UUID, int) ([]*contract.ScoredArtifact, error) {
	return r.s.scored, nil
}

// --- collaborators ---

type recordingPublisher struct {
	mu       sync.Mutex
	messages []*dto.PublishGenerationMessage
	err      error
}

func (p *recordingPublisher) PublishGeneration(_ context.Context, req *dto.PublishGenerationMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, req)
	return nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (e *recordingEvents) Publish(_ context.Context, ev events.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

type constantEmbedder struct{}

func (constantEmbedder) Embed(context.Context, string) ([]float32, error) { return []float32{3, 4}, nil }

func (constantEmbedder) EmbedAll(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func chunkIndex(threadID string) string {
	return threadID[strings.LastIndex(threadID, ":")+1:]
}

func noteRunner(failOn string) ArtifactRunner {
	return RunnerFunc(func(_ context.Context, req RunRequest) (artifact.Artifact, error) {
		if failOn != "" && (failOn == "*" || chunkIndex(req.ThreadID) == failOn) {
			return artifact.Artifact{}, errors.New("model unavailable")
		}
		return artifact.NewNote(artifact.NoteBlock{Blocks: []artifact.Block{{
			Type:    artifact.BlockParagraph,
			Content: "<p>" + req.Params.Content + "</p>",
			Source:  req.Params.Content,
		}}}), nil
	})
}

type fixture struct {
	store     *memoryStore
	publisher *recordingPublisher
	events    *recordingEvents
	svc       IGenerationService
}

func newFixture(t *testing.T, runners map[artifact.Kind]ArtifactRunner, sequential bool) *fixture {
	t.Helper()
	chunker, err := chunking.NewChunker(chunking.Options{MinSize: 1, MaxSize: 2})
	require.NoError(t, err)

	f := &fixture{
		store:     newMemoryStore(),
		publisher: &recordingPublisher{},
		events:    &recordingEvents{},
	}
	f.svc = NewGenerationService(GenerationDeps{
		UowFactory:       f.store,
		Publisher:        f.publisher,
		Chunker:          chunker,
		SentenceEmbedder: constantEmbedder{},
		ArtifactEmbedder: constantEmbedder{},
		QueryEmbedder:    constantEmbedder{},
		Runners:          runners,
		Coordinator: coordinator.Options{
			InitialInterval: time.Millisecond,
			MaxInterval:     2 * time.Millisecond,
			MaxFailures:     2,
			Sequential:      sequential,
		},
		Events: f.events,
		Logger: logger.NewNopLogger(),
	})
	return f
}

func (f *fixture) submit(t *testing.T, kind, content string) uuid.UUID {
	t.Helper()
	res, err := f.svc.Submit(context.Background(), &dto.CreateGenerationJobRequest{
		ModuleId: uuid.New(),
		Kind:     kind,
		Content:  content,
	})
	require.NoError(t, err)
	return res.Id
}

func (f *fixture) process(t *testing.T, id uuid.UUID) {
	t.Helper()
	require.NoError(t, f.svc.Process(context.Background(), &dto.PublishGenerationMessage{JobId: id}))
}

// --- tests ---

func TestSubmitQueuesJob(t *testing.T) {
	f := newFixture(t, map[artifact.Kind]ArtifactRunner{artifact.KindNote: noteRunner("")}, false)

	id := f.submit(t, "note", "Cells divide.")

	assert.Equal(t, entity.JobQueued, f.store.job(id).Status)
	require.Len(t, f.publisher.messages, 1)
	assert.Equal(t, id, f.publisher.messages[0].JobId)
}

func TestSubmitRejectsKindWithoutRunner(t *testing.T) {
	f := newFixture(t, map[artifact.Kind]ArtifactRunner{artifact.KindNote: noteRunner("")}, false)

	_, err := f.svc.Submit(context.Background(), &dto.CreateGenerationJobRequest{Kind: "quiz", Content: "x."})
	assert.ErrorIs(t, err, ErrUnsupportedKind)
	assert.ErrorIs(t, err, serverutils.ErrBadRequest)

	_, err = f.svc.Submit(context.Background(), &dto.CreateGenerationJobRequest{Kind: "essay", Content: "x."})
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestSubmitMarksJobFailedWhenQueueIsDown(t *testing.T) {
	f := newFixture(t, map[artifact.Kind]ArtifactRunner{artifact.KindNote: noteRunner("")}, false)
	f.publisher.err = errors.New("queue closed")

	_, err := f.svc.Submit(context.Background(), &dto.CreateGenerationJobRequest{Kind: "note", Content: "x."})
	require.Error(t, err)

	require.Len(t, f.store.jobs, 1)
	for _, j := range f.store.jobs {
		assert.Equal(t, entity.JobFailed, j.Status)
		assert.Contains(t, j.ErrorMessage, "queue closed")
	}
}

func TestProcessCompletesJob(t *testing.T) {
	f := newFixture(t, map[artifact.Kind]ArtifactRunner{artifact.KindNote: noteRunner("")}, false)
	id := f.submit(t, "note", "Cells divide. DNA replicates first. Then the cell splits.")

	f.process(t, id)

	job := f.store.job(id)
	assert.Equal(t, entity.JobCompleted, job.Status)
	assert.Equal(t, 2, job.ChunkCount)
	assert.Equal(t, 0, job.FailedChunks)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, job.DocumentEmbedding, 1e-6)
	assert.NotNil(t, job.FinishedAt)

	shown, err := f.svc.Show(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, shown.Artifacts, 2)
	assert.Equal(t, 0, shown.Artifacts[0].ChunkIndex)
	assert.Equal(t, "Cells divide.", shown.Artifacts[0].Artifact.Text())
	assert.Equal(t, "DNA replicates first. Then the cell splits.", shown.Artifacts[1].Artifact.Text())

	require.Len(t, f.events.events, 1)
	assert.Equal(t, events.GenerationCompleted, f.events.events[0].EventType())
}

func TestProcessRecordsPartialJob(t *testing.T) {
	f := newFixture(t, map[artifact.Kind]ArtifactRunner{artifact.KindNote: noteRunner("1")}, false)
	id := f.submit(t, "note", "Cells divide. DNA replicates first. Then the cell splits.")

	f.process(t, id)

	job := f.store.job(id)
	assert.Equal(t, entity.JobPartial, job.Status)
	assert.Equal(t, 1, job.FailedChunks)

	shown, err := f.svc.Show(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, shown.Artifacts, 1)
	assert.Equal(t, 0, shown.Artifacts[0].ChunkIndex)
}

func TestProcessFailsWhenNothingIsGenerated(t *testing.T) {
	f := newFixture(t, map[artifact.Kind]ArtifactRunner{artifact.KindNote: noteRunner("*")}, false)
	id := f.submit(t, "note", "Cells divide. DNA replicates first.")

	f.process(t, id)

	job := f.store.job(id)
	assert.Equal(t, entity.JobFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "no content generated")
	assert.Nil(t, job.DocumentEmbedding)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, events.GenerationFailed, f.events.events[0].EventType())
}

func TestProcessFailsContentWithoutSentences(t *testing.T) {
	f := newFixture(t, map[artifact.Kind]ArtifactRunner{artifact.KindNote: noteRunner("")}, false)
	id := f.submit(t, "note", "no terminal punctuation here")

	f.process(t, id)

	job := f.store.job(id)
	assert.Equal(t, entity.JobFailed, job.Status)
	assert.Equal(t, ErrNoSentences.Error(), job.ErrorMessage)
}

func TestProcessSkipsSettledAndUnknownJobs(t *testing.T) {
	calls := 0
	runner := RunnerFunc(func(ctx context.Context, req RunRequest) (artifact.Artifact, error) {
		calls++
		return noteRunner("").Run(ctx, req)
	})
	f := newFixture(t, map[artifact.Kind]ArtifactRunner{artifact.KindNote: runner}, true)
	id := f.submit(t, "note", "Cells divide.")

	f.process(t, id)
	f.process(t, id)
	f.process(t, uuid.New())

	assert.Equal(t, 1, calls)
}

func TestProcessThreadsFlashcardFrontsSequentially(t *testing.T) {
	var mu sync.Mutex
	seenPrior := map[string][]string{}

	runner := RunnerFunc(func(_ context.Context, req RunRequest) (artifact.Artifact, error) {
		idx := chunkIndex(req.ThreadID)
		mu.Lock()
		seenPrior[idx] = req.Params.PriorArtifacts
		mu.Unlock()

		cards := make([]artifact.Flashcard, artifact.MinFlashcards)
		for i := range cards {
			cards[i] = artifact.Flashcard{
				Front:      fmt.Sprintf("chunk %s card %d", idx, i),
				Back:       "answer",
				Difficulty: "easy",
				Status:     "new",
			}
		}
		return artifact.NewFlashcards(artifact.FlashcardSet{Cards: cards}), nil
	})

	f := newFixture(t, map[artifact.Kind]ArtifactRunner{artifact.KindFlashcards: runner}, true)
	id := f.submit(t, "flashcards", "Cells divide. DNA replicates first. Then the cell splits.")

	f.process(t, id)

	assert.Equal(t, entity.JobCompleted, f.store.job(id).Status)
	assert.Empty(t, seenPrior["0"])
	require.Len(t, seenPrior["1"], artifact.MinFlashcards)
	assert.Equal(t, "chunk 0 card 0", seenPrior["1"][0])
}

func TestShowUnknownJob(t *testing.T) {
	f := newFixture(t, nil, false)
	_, err := f.svc.Show(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, err, serverutils.ErrNotFound)
}

func TestSearchRelated(t *testing.T) {
	f := newFixture(t, nil, false)

	_, err := f.svc.SearchRelated(context.Background(), uuid.New(), "", 5)
	assert.ErrorIs(t, err, serverutils.ErrBadRequest)

	f.store.scored = []*contract.ScoredArtifact{{
		Artifact: &entity.GeneratedArtifact{
			Id:         uuid.New(),
			ChunkIndex: 3,
			Artifact:   artifact.Artifact{Kind: artifact.KindQuiz},
			Document:   "What is ATP?",
		},
		Similarity: 0.91,
	}}
	res, err := f.svc.SearchRelated(context.Background(), uuid.New(), "energy", 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "quiz", res[0].Kind)
	assert.Equal(t, 3, res[0].ChunkIndex)
	assert.Equal(t, 0.91, res[0].Similarity)
}

func TestFrontLedgerDeduplicates(t *testing.T) {
	l := newFrontLedger()
	assert.Nil(t, l.Snapshot())

	l.Add("What is ATP?", "  what is atp? ", "", "Define mitosis")
	assert.Equal(t, []string{"What is ATP?", "Define mitosis"}, l.Snapshot())
}

func TestBoundSentencesWindowsLongSentences(t *testing.T) {
	long := strings.Repeat("a", maxSentenceRunes+500) + "."
	got := boundSentences([]string{"Short one.", long})

	require.Len(t, got, 3)
	assert.Equal(t, "Short one.", got[0])
	assert.Len(t, []rune(got[1]), maxSentenceRunes)
	assert.True(t, strings.HasSuffix(got[2], "."))
}

func TestListJobsFiltersByModuleAndStatus(t *testing.T) {
	f := newFixture(t, map[artifact.Kind]ArtifactRunner{artifact.KindNote: noteRunner("")}, false)
	moduleId := uuid.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := memoryJobs{f.store}
	for i, status := range []entity.JobStatus{entity.JobCompleted, entity.JobFailed, entity.JobCompleted} {
		require.NoError(t, repo.Create(context.Background(), &entity.GenerationJob{
			Id:        uuid.New(),
			ModuleId:  moduleId,
			Kind:      artifact.KindNote,
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	f.submit(t, "note", "Unrelated module.")

	all, err := f.svc.ListJobs(context.Background(), &dto.ListGenerationJobsRequest{ModuleId: moduleId, Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))

	completed, err := f.svc.ListJobs(context.Background(), &dto.ListGenerationJobsRequest{ModuleId: moduleId, Status: "completed", Limit: 1})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "completed", completed[0].Status)
	assert.Equal(t, base.Add(2*time.Hour), completed[0].CreatedAt)
}

func TestDeleteRemovesSettledJobAndArtifacts(t *testing.T) {
	f := newFixture(t, map[artifact.Kind]ArtifactRunner{artifact.KindNote: noteRunner("")}, false)
	id := f.submit(t, "note", "Cells divide. Mitosis has phases.")

	err := f.svc.Delete(context.Background(), id)
	assert.ErrorIs(t, err, ErrJobInProgress)
	assert.ErrorIs(t, err, serverutils.ErrConflict)

	f.process(t, id)
	require.NoError(t, f.svc.Delete(context.Background(), id))

	_, err = f.svc.Show(context.Background(), id)
	assert.ErrorIs(t, err, ErrJobNotFound)
	n, err := memoryArtifacts{f.store}.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, f.store.commits)

	assert.ErrorIs(t, f.svc.Delete(context.Background(), uuid.New()), serverutils.ErrNotFound)
}
