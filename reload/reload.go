// Package reload implements the hot-reload state machine from section 4.7:
// after any admin mutation that could affect semantics, rebuild the
// Semantic Index and refresh the tokenizer dictionary atomically, without
// ever leaving readers looking at a partially-swapped state.
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nlsql/semcore/ontology"
	"github.com/nlsql/semcore/semindex"
)

// NodeLoader is the meta-DB dependency. ontology.Store satisfies it.
type NodeLoader interface {
	LoadNodes() ([]ontology.SemanticNode, error)
	AllValueLabels() ([]string, error)
}

// WordRefresher is the tokenizer dependency.
type WordRefresher interface {
	RefreshCustomWords(words []string)
}

// ReloadFailedError wraps a failure anywhere in the reload pipeline. The
// previous index is always left intact — no partial swap (section 7).
type ReloadFailedError struct {
	Err error
}

func (e *ReloadFailedError) Error() string { return fmt.Sprintf("reload failed: %s", e.Err) }
func (e *ReloadFailedError) Unwrap() error { return e.Err }

// Reloader orchestrates the Stable -> Reloading -> Stable transition.
// Reload is serialized per process: concurrent admin writes funnel through
// runMu so each enqueued reload runs to completion before the next starts.
type Reloader struct {
	store     NodeLoader
	index     *semindex.Holder
	tokenizer WordRefresher

	runMu sync.Mutex
}

// New constructs a Reloader wired to the given store, index holder, and
// tokenizer.
func New(store NodeLoader, index *semindex.Holder, tokenizer WordRefresher) *Reloader {
	return &Reloader{store: store, index: index, tokenizer: tokenizer}
}

// Run executes one full reload cycle:
//  1. load all nodes (with aggregated supported_dimension_ids),
//  2. build a fresh Semantic Index off-thread,
//  3. collect the union of labels, aliases, and A-Box value_labels,
//  4. swap the index in under its write lock,
//  5. refresh the tokenizer dictionary under its write lock.
//
// The index swap always precedes the tokenizer refresh: a tokenizer entry
// for a node not yet indexed is harmless, but the reverse could let an
// inference produce a match that then fails to resolve.
func (r *Reloader) Run(ctx context.Context) error {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	slog.Debug("reload: starting")

	var nodes []ontology.SemanticNode
	var valueLabels []string

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		nodes, err = r.store.LoadNodes()
		return err
	})
	g.Go(func() error {
		var err error
		valueLabels, err = r.store.AllValueLabels()
		return err
	})
	if err := g.Wait(); err != nil {
		return &ReloadFailedError{Err: err}
	}

	newIndex := semindex.Build(nodes)

	words := collectWords(nodes, valueLabels)

	r.index.Swap(newIndex)
	slog.Debug("reload: index swapped", "nodes", len(nodes))

	r.tokenizer.RefreshCustomWords(words)
	slog.Debug("reload: tokenizer refreshed", "words", len(words))

	return nil
}

// collectWords returns the deduplicated union of every node's display
// names plus every A-Box value label, in a stable order so repeated
// reloads over the same input produce identical tokenizer state
// (idempotence, section 8).
func collectWords(nodes []ontology.SemanticNode, valueLabels []string) []string {
	seen := make(map[string]struct{})
	var words []string

	add := func(w string) {
		if w == "" {
			return
		}
		if _, ok := seen[w]; ok {
			return
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}

	for _, n := range nodes {
		for _, name := range n.DisplayNames() {
			add(name)
		}
	}
	for _, v := range valueLabels {
		add(v)
	}
	return words
}
