package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("ai-studykit/workflow")

// Graph is a compiled, immutable workflow. It is safe for concurrent runs as
// long as every run uses its own thread id.
type Graph[S, P any] struct {
	name     string
	merge    MergeFunc[S, P]
	nodes    map[string]NodeFunc[S, P]
	edges    map[string]edge[S]
	entry    string
	store    CheckpointStore[S]
	maxSteps int
}

func (g *Graph[S, P]) Name() string {
	return g.name
}

// Run executes the graph from its entry node. On failure the partially
// merged state is returned together with the error.
func (g *Graph[S, P]) Run(ctx context.Context, threadID string, state S) (S, error) {
	return g.execute(ctx, threadID, g.entry, state, 0)
}

// Resume continues the thread from its last checkpoint. A thread whose last
// checkpoint already points at End returns the saved state without running.
func (g *Graph[S, P]) Resume(ctx context.Context, threadID string) (S, error) {
	var zero S
	if g.store == nil {
		return zero, ErrNoStore
	}
	cp, err := g.store.Load(ctx, g.name, threadID)
	if err != nil {
		return zero, err
	}
	return g.execute(ctx, threadID, cp.Next, cp.State, cp.Step)
}

// RunOrResume resumes threadID when a checkpoint exists and starts a fresh
// run with state otherwise. Retried work uses it to skip nodes that already
// succeeded.
func (g *Graph[S, P]) RunOrResume(ctx context.Context, threadID string, state S) (S, error) {
	if g.store == nil {
		return g.Run(ctx, threadID, state)
	}
	out, err := g.Resume(ctx, threadID)
	if errors.Is(err, ErrNoCheckpoint) {
		return g.Run(ctx, threadID, state)
	}
	return out, err
}

func (g *Graph[S, P]) execute(ctx context.Context, threadID, from string, state S, step int) (S, error) {
	ctx, span := tracer.Start(ctx, "workflow."+g.name, trace.WithAttributes(
		attribute.String("workflow.thread_id", threadID),
		attribute.String("workflow.from", from),
	))
	defer span.End()

	out, err := g.loop(ctx, threadID, from, state, step)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

func (g *Graph[S, P]) loop(ctx context.Context, threadID, current string, state S, step int) (S, error) {
	for current != End {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		if step >= g.maxSteps {
			return state, fmt.Errorf("%w: graph %q stopped at %q after %d steps", ErrMaxSteps, g.name, current, step)
		}

		fn, ok := g.nodes[current]
		if !ok {
			return state, fmt.Errorf("%w: graph %q has no node %q", ErrUnknownNode, g.name, current)
		}

		patch, err := g.runNode(ctx, current, fn, state)
		if err != nil {
			return state, &NodeError{Graph: g.name, Node: current, Err: err}
		}
		state = g.merge(state, patch)

		next, err := g.route(ctx, current, state)
		if err != nil {
			return state, err
		}
		step++

		if g.store != nil {
			cp := Checkpoint[S]{
				Graph:    g.name,
				ThreadID: threadID,
				Node:     current,
				Next:     next,
				Step:     step,
				State:    state,
				SavedAt:  time.Now().UTC(),
			}
			if err := g.store.Save(ctx, cp); err != nil {
				return state, fmt.Errorf("workflow %s: save checkpoint: %w", g.name, err)
			}
		}

		current = next
	}
	return state, nil
}

func (g *Graph[S, P]) runNode(ctx context.Context, name string, fn NodeFunc[S, P], state S) (P, error) {
	ctx, span := tracer.Start(ctx, "workflow.node."+name)
	defer span.End()

	patch, err := fn(ctx, state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return patch, err
}

func (g *Graph[S, P]) route(ctx context.Context, from string, state S) (string, error) {
	e := g.edges[from]
	if e.router == nil {
		return e.to, nil
	}

	next, err := e.router(ctx, state)
	if err != nil {
		return "", fmt.Errorf("workflow %s: route from %s: %w", g.name, from, err)
	}
	if !slices.Contains(e.destinations, next) {
		return "", fmt.Errorf("%w: %q from %q in graph %q", ErrUnroutedBranch, next, from, g.name)
	}
	return next, nil
}
