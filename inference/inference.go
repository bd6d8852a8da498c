// Package inference implements the tokenize -> match -> disambiguate ->
// logical-plan pipeline described in section 4.3. It is the core algorithm
// of the system: everything upstream (index, tokenizer, A-Box store) exists
// to feed this package, and everything downstream (the lowerer) consumes
// its output.
package inference

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nlsql/semcore/ontology"
	"github.com/nlsql/semcore/semindex"
)

// dateRE extracts at most one ISO date from the raw query text, per step 1.
var dateRE = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// reservedParticles are the tokens that, when they immediately follow a
// matched dimension token, suppress context-adjacent value capture (step 3).
var reservedParticles = map[string]struct{}{
	"是": {},
	"为": {},
}

// Filter is one bound (dimension, value) pair surviving T-Box validation
// and de-duplication.
type Filter struct {
	Dim   ontology.SemanticNode
	Value string
}

// LogicalPlan is the pipeline's output: the anchored metric plus its
// ordered, de-duplicated, T-Box-validated filters.
type LogicalPlan struct {
	Metric  ontology.SemanticNode
	Filters []Filter
}

// ValueLookup is the A-Box querier the engine needs (step 4). The store
// package satisfies it directly.
type ValueLookup interface {
	LookupValue(label string) ([]ontology.DimensionValue, error)
}

// Segmenter is the tokenizer dependency (step 2). The tokenizer package
// satisfies it directly.
type Segmenter interface {
	Tokenize(text string) []string
}

// NoMetricAnchorError is returned when no token in the query matches any
// METRIC node's label or alias.
type NoMetricAnchorError struct{}

func (NoMetricAnchorError) Error() string { return "no metric anchor found in query" }

// MetricAmbiguousError is returned in strict mode when more than one
// distinct metric node matches the query text.
type MetricAmbiguousError struct {
	Candidates []string // matched metric labels, in first-seen order
}

func (e MetricAmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous metric match: %s", strings.Join(e.Candidates, ", "))
}

// Engine runs the inference pipeline described in section 4.3. The zero
// value has every optional enrichment disabled; construct with New, or set
// Strict/ContextAdjacentCapture explicitly once constructed.
type Engine struct {
	Index       *semindex.Holder
	Tokenizer   Segmenter
	ValueLookup ValueLookup

	// Strict, when true, makes multiple distinct metric matches return
	// MetricAmbiguousError instead of silently anchoring on the first
	// match (Open Question #2).
	Strict bool

	// ContextAdjacentCapture enables step 3's "next token after a matched
	// dimension, if not a reserved particle and length >= 2, is a
	// candidate value" enrichment (Open Question #4).
	ContextAdjacentCapture bool
}

// New constructs an Engine with the spec's documented default behavior:
// first-match metric anchoring, context-adjacent capture disabled.
//
// Context-adjacent capture is off by default: it binds whatever raw text
// follows a matched dimension token, independent of the A-Box scan. When a
// token is also resolvable through the A-Box (the normal case — a known
// dimension value sitting right after its dimension's label, exactly the
// shape of every worked example in section 8), enabling capture adds a
// second, differently-valued candidate for the same dimension instead of
// one. Source variants disagree on whether this step exists at all (Open
// Question #4); callers that want it can set ContextAdjacentCapture=true.
func New(index *semindex.Holder, tok Segmenter, values ValueLookup) *Engine {
	return &Engine{
		Index:                  index,
		Tokenizer:              tok,
		ValueLookup:            values,
		Strict:                 false,
		ContextAdjacentCapture: false,
	}
}

type candidate struct {
	dim   ontology.SemanticNode
	value string
}

// Infer runs the full pipeline over a single raw query string.
func (e *Engine) Infer(query string) (*LogicalPlan, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, NoMetricAnchorError{}
	}

	// Step 1: regex pre-extraction, at most one captured date.
	capturedDate := ""
	if m := dateRE.FindString(query); m != "" {
		capturedDate = m
	}

	// Step 2: segmentation.
	tokens := e.Tokenizer.Tokenize(query)

	idx := e.Index.Get()

	// Step 3: label scan.
	var targetMetrics []ontology.SemanticNode
	seenMetricIDs := map[string]struct{}{}
	var candidates []candidate

	for i, raw := range tokens {
		w := strings.ToLower(raw)
		node, ok := idx.Lookup(w)
		if !ok {
			continue
		}
		switch node.Role {
		case ontology.RoleMetric:
			if _, dup := seenMetricIDs[node.ID]; !dup {
				seenMetricIDs[node.ID] = struct{}{}
				targetMetrics = append(targetMetrics, node)
			}
		case ontology.RoleDimension:
			if e.ContextAdjacentCapture && i+1 < len(tokens) {
				next := tokens[i+1]
				if _, reserved := reservedParticles[next]; !reserved && len([]rune(next)) >= 2 {
					candidates = append(candidates, candidate{dim: node, value: next})
				}
			}
		}
	}

	// Step 4: A-Box scan.
	for _, raw := range tokens {
		values, err := e.ValueLookup.LookupValue(raw)
		if err != nil {
			return nil, fmt.Errorf("inference: a-box lookup for %q: %w", raw, err)
		}
		for _, v := range values {
			dim, ok := idx.Node(v.DimensionNodeID)
			if !ok {
				continue
			}
			candidates = append(candidates, candidate{dim: dim, value: v.ValueCode})
		}
	}

	// Step 5: anchor selection.
	if len(targetMetrics) == 0 {
		return nil, NoMetricAnchorError{}
	}
	if e.Strict && len(targetMetrics) > 1 {
		labels := make([]string, 0, len(targetMetrics))
		for _, m := range targetMetrics {
			labels = append(labels, m.Label)
		}
		return nil, MetricAmbiguousError{Candidates: labels}
	}
	metric := targetMetrics[0]

	// Step 6: T-Box validation.
	supported := make(map[string]struct{}, len(metric.SupportedDimIDs))
	for _, id := range metric.SupportedDimIDs {
		supported[id] = struct{}{}
	}

	// Step 7: de-duplication, preserving first-seen order.
	var filters []Filter
	seenKeys := map[string]struct{}{}
	boundDims := map[string]struct{}{}
	for _, c := range candidates {
		if _, ok := supported[c.dim.ID]; !ok {
			continue // T-Box violation: silently dropped (default behavior)
		}
		key := c.dim.ID + "\x00" + c.value
		if _, dup := seenKeys[key]; dup {
			continue
		}
		seenKeys[key] = struct{}{}
		boundDims[c.dim.ID] = struct{}{}
		filters = append(filters, Filter{Dim: c.dim, Value: c.value})
	}

	// Step 8: type-directed time binding. Only fires when a date was
	// captured and no DATE-typed dimension has already been bound.
	if capturedDate != "" {
		dateAlreadyBound := false
		for _, f := range filters {
			if f.Dim.IsDate() {
				dateAlreadyBound = true
				break
			}
		}
		if !dateAlreadyBound {
			for _, id := range metric.SupportedDimIDs {
				if _, already := boundDims[id]; already {
					continue
				}
				dim, ok := idx.Node(id)
				if !ok || !dim.IsDate() {
					continue
				}
				filters = append(filters, Filter{Dim: dim, Value: capturedDate})
				boundDims[dim.ID] = struct{}{}
			}
		}
	}

	return &LogicalPlan{Metric: metric, Filters: filters}, nil
}
