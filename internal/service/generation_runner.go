package service

import (
	"context"
	"strings"
	"sync"

	"ai-studykit-be/pkg/ai/artifact"
	"ai-studykit-be/pkg/ai/coordinator"
	"ai-studykit-be/pkg/ai/flashcard"
	"ai-studykit-be/pkg/ai/note"
	"ai-studykit-be/pkg/ai/quiz"
	"ai-studykit-be/pkg/llm"
)

// IsPermanentFailure stops chunk retries for broken graphs and for model
// backend replies that would fail identically on the next attempt.
func IsPermanentFailure(err error) bool {
	return coordinator.DefaultPermanent(err) || llm.IsPermanent(err)
}

// RunRequest is one graph invocation for one chunk.
type RunRequest struct {
	ThreadID string
	Params   artifact.Params
	QuizType artifact.QuizType
}

// ArtifactRunner runs the generation graph for one artifact kind.
type ArtifactRunner interface {
	Run(ctx context.Context, req RunRequest) (artifact.Artifact, error)
}

type RunnerFunc func(ctx context.Context, req RunRequest) (artifact.Artifact, error)

func (f RunnerFunc) Run(ctx context.Context, req RunRequest) (artifact.Artifact, error) {
	return f(ctx, req)
}

func NoteRunner(gen *note.Generator) ArtifactRunner {
	return RunnerFunc(func(ctx context.Context, req RunRequest) (artifact.Artifact, error) {
		block, err := gen.Generate(ctx, req.ThreadID, req.Params)
		if err != nil {
			return artifact.Artifact{}, err
		}
		return artifact.NewNote(*block), nil
	})
}

func FlashcardRunner(gen *flashcard.Generator) ArtifactRunner {
	return RunnerFunc(func(ctx context.Context, req RunRequest) (artifact.Artifact, error) {
		set, err := gen.Generate(ctx, req.ThreadID, req.Params)
		if err != nil {
			return artifact.Artifact{}, err
		}
		return artifact.NewFlashcards(*set), nil
	})
}

func QuizRunner(gen *quiz.Generator) ArtifactRunner {
	return RunnerFunc(func(ctx context.Context, req RunRequest) (artifact.Artifact, error) {
		q, err := gen.Generate(ctx, req.ThreadID, req.Params, req.QuizType)
		if err != nil {
			return artifact.Artifact{}, err
		}
		return artifact.NewQuiz(*q), nil
	})
}

// frontLedger collects flashcard fronts accepted so far in a job. Tasks read
// it while the coordinator's collector appends to it.
type frontLedger struct {
	mu     sync.Mutex
	fronts []string
	seen   map[string]struct{}
}

func newFrontLedger() *frontLedger {
	return &frontLedger{seen: make(map[string]struct{})}
}

func (l *frontLedger) Add(fronts ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range fronts {
		key := strings.ToLower(strings.TrimSpace(f))
		if key == "" {
			continue
		}
		if _, ok := l.seen[key]; ok {
			continue
		}
		l.seen[key] = struct{}{}
		l.fronts = append(l.fronts, f)
	}
}

func (l *frontLedger) Snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.fronts) == 0 {
		return nil
	}
	out := make([]string, len(l.fronts))
	copy(out, l.fronts)
	return out
}
