package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

const (
	Start = "__start__"
	End   = "__end__"

	DefaultMaxSteps = 100
)

// NodeFunc does the work of one step and returns a patch for the state.
type NodeFunc[S, P any] func(ctx context.Context, state S) (P, error)

// RouterFunc picks the next node after a conditional node ran.
type RouterFunc[S any] func(ctx context.Context, state S) (string, error)

// MergeFunc folds a patch into the state. Set fields overwrite.
type MergeFunc[S, P any] func(state S, patch P) S

type edge[S any] struct {
	to           string
	router       RouterFunc[S]
	destinations []string
}

func (e edge[S]) targets() []string {
	if e.router == nil {
		return []string{e.to}
	}
	return e.destinations
}

type Builder[S, P any] struct {
	name     string
	merge    MergeFunc[S, P]
	nodes    map[string]NodeFunc[S, P]
	order    []string
	edges    map[string]edge[S]
	entry    string
	store    CheckpointStore[S]
	maxSteps int
	errs     []error
}

func NewBuilder[S, P any](name string, merge MergeFunc[S, P]) *Builder[S, P] {
	return &Builder[S, P]{
		name:     name,
		merge:    merge,
		nodes:    make(map[string]NodeFunc[S, P]),
		edges:    make(map[string]edge[S]),
		maxSteps: DefaultMaxSteps,
	}
}

func (b *Builder[S, P]) AddNode(name string, fn NodeFunc[S, P]) *Builder[S, P] {
	switch {
	case name == "" || name == Start || name == End:
		b.errs = append(b.errs, fmt.Errorf("reserved or empty node name %q", name))
	case fn == nil:
		b.errs = append(b.errs, fmt.Errorf("node %q has no function", name))
	case b.nodes[name] != nil:
		b.errs = append(b.errs, fmt.Errorf("duplicate node %q", name))
	default:
		b.nodes[name] = fn
		b.order = append(b.order, name)
	}
	return b
}

// AddEdge declares a fixed transition. AddEdge(Start, n) is the same as SetEntry(n).
func (b *Builder[S, P]) AddEdge(from, to string) *Builder[S, P] {
	if from == Start {
		return b.SetEntry(to)
	}
	return b.addEdge(from, edge[S]{to: to})
}

// AddConditionalEdge declares a router for from. destinations lists every
// name the router may return.
func (b *Builder[S, P]) AddConditionalEdge(from string, router RouterFunc[S], destinations ...string) *Builder[S, P] {
	if router == nil {
		b.errs = append(b.errs, fmt.Errorf("conditional edge from %q has no router", from))
		return b
	}
	if len(destinations) == 0 {
		b.errs = append(b.errs, fmt.Errorf("conditional edge from %q declares no destinations", from))
		return b
	}
	return b.addEdge(from, edge[S]{router: router, destinations: slices.Clone(destinations)})
}

func (b *Builder[S, P]) addEdge(from string, e edge[S]) *Builder[S, P] {
	if _, exists := b.edges[from]; exists {
		b.errs = append(b.errs, fmt.Errorf("node %q already has an outgoing edge", from))
		return b
	}
	b.edges[from] = e
	return b
}

func (b *Builder[S, P]) SetEntry(name string) *Builder[S, P] {
	if b.entry != "" && b.entry != name {
		b.errs = append(b.errs, fmt.Errorf("entry already set to %q", b.entry))
		return b
	}
	b.entry = name
	return b
}

func (b *Builder[S, P]) WithCheckpointStore(store CheckpointStore[S]) *Builder[S, P] {
	b.store = store
	return b
}

func (b *Builder[S, P]) WithMaxSteps(n int) *Builder[S, P] {
	if n > 0 {
		b.maxSteps = n
	}
	return b
}

// Compile validates the declaration and returns an immutable graph.
func (b *Builder[S, P]) Compile() (*Graph[S, P], error) {
	errs := slices.Clone(b.errs)

	if b.merge == nil {
		errs = append(errs, errors.New("no merge function"))
	}
	if b.entry == "" {
		errs = append(errs, errors.New("no entry node"))
	} else if b.nodes[b.entry] == nil {
		errs = append(errs, fmt.Errorf("entry node %q is not defined", b.entry))
	}

	for _, from := range sortedKeys(b.edges) {
		if b.nodes[from] == nil {
			errs = append(errs, fmt.Errorf("edge from undefined node %q", from))
			continue
		}
		for _, to := range b.edges[from].targets() {
			if to != End && b.nodes[to] == nil {
				errs = append(errs, fmt.Errorf("edge %q -> %q targets an undefined node", from, to))
			}
		}
	}

	for _, name := range b.order {
		if _, ok := b.edges[name]; !ok {
			errs = append(errs, fmt.Errorf("node %q has no outgoing edge", name))
		}
	}

	if len(errs) == 0 {
		errs = append(errs, b.checkReachability()...)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: graph %q: %w", ErrInvalidGraph, b.name, errors.Join(errs...))
	}

	g := &Graph[S, P]{
		name:     b.name,
		merge:    b.merge,
		nodes:    make(map[string]NodeFunc[S, P], len(b.nodes)),
		edges:    make(map[string]edge[S], len(b.edges)),
		entry:    b.entry,
		store:    b.store,
		maxSteps: b.maxSteps,
	}
	for k, v := range b.nodes {
		g.nodes[k] = v
	}
	for k, v := range b.edges {
		g.edges[k] = v
	}
	return g, nil
}

func (b *Builder[S, P]) checkReachability() []error {
	var errs []error

	forward := map[string]bool{b.entry: true}
	queue := []string{b.entry}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, to := range b.edges[n].targets() {
			if to != End && !forward[to] {
				forward[to] = true
				queue = append(queue, to)
			}
		}
	}

	reverse := make(map[string][]string)
	for from, e := range b.edges {
		for _, to := range e.targets() {
			reverse[to] = append(reverse[to], from)
		}
	}
	backward := map[string]bool{}
	queue = []string{End}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, from := range reverse[n] {
			if !backward[from] {
				backward[from] = true
				queue = append(queue, from)
			}
		}
	}

	for _, name := range b.order {
		if !forward[name] {
			errs = append(errs, fmt.Errorf("node %q is unreachable from the entry", name))
		}
		if !backward[name] {
			errs = append(errs, fmt.Errorf("node %q can never reach the end", name))
		}
	}
	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
