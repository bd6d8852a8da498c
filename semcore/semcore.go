// Package semcore wires the semantic index, tokenizer, inference engine,
// plan lowerer, pool router, and row marshaller into the single core
// request-path operation: chat_query (section 6).
package semcore

import (
	"errors"
	"log/slog"

	"github.com/k0kubun/pp/v3"

	"github.com/nlsql/semcore/inference"
	"github.com/nlsql/semcore/lowerer"
	"github.com/nlsql/semcore/ontology"
	"github.com/nlsql/semcore/poolrouter"
	"github.com/nlsql/semcore/rowmarshal"
	"github.com/nlsql/semcore/semindex"
)

// Status mirrors the four response envelope variants in section 6.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFail      Status = "fail"
	StatusAmbiguous Status = "ambiguous"
	StatusError     Status = "error"
)

// Response is the uniform JSON envelope chat_query returns.
type Response struct {
	Status     Status           `json:"status"`
	SQL        string           `json:"sql,omitempty"`
	Logic      string           `json:"logic,omitempty"`
	Data       []map[string]any `json:"data,omitempty"`
	Answer     string           `json:"answer,omitempty"`
	Candidates []string         `json:"candidates,omitempty"`
	Message    string           `json:"message,omitempty"`
}

// sourceResolver is the subset of ontology.Store semcore needs to resolve
// the data source that owns a matched metric.
type sourceResolver interface {
	DataSource(id string) (ontology.DataSource, error)
}

// State is the long-lived, shared process state a request handler threads
// through to ChatQuery: the hot-swappable index, the tokenizer, the A-Box
// store, and the pool router. It owns no per-request state.
type State struct {
	Index   *semindex.Holder
	Engine  *inference.Engine
	Lowerer *lowerer.Lowerer
	Router  *poolrouter.Router
	Sources sourceResolver
	Verbose bool // when true, pretty-print the logical plan at debug level
}

// NewState builds a State with the spec's default-behavior inference
// engine and lowerer, ready to serve ChatQuery calls.
func NewState(index *semindex.Holder, engine *inference.Engine, sources sourceResolver, router *poolrouter.Router) *State {
	return &State{
		Index:   index,
		Engine:  engine,
		Lowerer: lowerer.New(),
		Router:  router,
		Sources: sources,
	}
}

// ChatQuery runs the full request pipeline: inference -> lowering ->
// pool execution -> row marshalling, returning one of the four envelope
// shapes from section 6. It never returns a non-nil error paired with a
// zero-value Response; every failure mode is folded into the envelope, per
// the propagation policy in section 7.
func (s *State) ChatQuery(query string) Response {
	plan, err := s.Engine.Infer(query)
	if err != nil {
		return s.envelopeForInferenceError(err)
	}

	if s.Verbose {
		slog.Debug("chat_query: inferred plan", "plan", pp.Sprint(plan))
	}

	source, err := s.Sources.DataSource(plan.Metric.SourceID)
	if err != nil {
		slog.Error("chat_query: source config missing", "source_id", plan.Metric.SourceID, "error", err)
		return Response{Status: StatusError, Message: "data source is not configured for this metric"}
	}

	sql := s.Lowerer.Lower(plan, query, source.DBType)

	rows, _, err := s.Router.Execute(plan.Metric.SourceID, sql)
	if err != nil {
		var createErr *poolrouter.PoolCreateFailedError
		var execErr *poolrouter.ExecutionError
		switch {
		case errors.As(err, &createErr):
			slog.Error("chat_query: pool create failed", "source_id", plan.Metric.SourceID, "error", err)
			return Response{Status: StatusError, Message: err.Error()}
		case errors.As(err, &execErr):
			slog.Error("chat_query: execution error", "source_id", plan.Metric.SourceID, "error", err)
			return Response{Status: StatusError, Message: execErr.Err.Error()}
		default:
			return Response{Status: StatusError, Message: err.Error()}
		}
	}
	defer rows.Close()

	data, err := rowmarshal.MarshalRows(rows)
	if err != nil {
		slog.Error("chat_query: row marshalling failed", "error", err)
		return Response{Status: StatusError, Message: err.Error()}
	}

	return Response{
		Status: StatusSuccess,
		SQL:    sql,
		Logic:  logicString(plan),
		Data:   data,
	}
}

func (s *State) envelopeForInferenceError(err error) Response {
	var noAnchor inference.NoMetricAnchorError
	var ambiguous inference.MetricAmbiguousError

	switch {
	case errors.As(err, &noAnchor):
		return Response{Status: StatusFail, Answer: "I could not find a metric in your question."}
	case errors.As(err, &ambiguous):
		return Response{
			Status:     StatusAmbiguous,
			Answer:     "Your question matches more than one metric.",
			Candidates: ambiguous.Candidates,
		}
	default:
		return Response{Status: StatusError, Message: err.Error()}
	}
}

// logicString renders a compact human-readable form of the logical plan,
// used as the "logic" field in the success envelope.
func logicString(plan *inference.LogicalPlan) string {
	out := plan.Metric.Label
	for _, f := range plan.Filters {
		out += " | " + f.Dim.Label + "=" + f.Value
	}
	return out
}
