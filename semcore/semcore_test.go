package semcore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nlsql/semcore/inference"
	"github.com/nlsql/semcore/ontology"
	"github.com/nlsql/semcore/poolrouter"
	"github.com/nlsql/semcore/semcore"
	"github.com/nlsql/semcore/semindex"
)

type splitSegmenter struct{}

func (splitSegmenter) Tokenize(text string) []string {
	var tokens []string
	var cur []rune
	for _, r := range text {
		if r == ' ' {
			if len(cur) > 0 {
				tokens = append(tokens, string(cur))
				cur = nil
			}
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		tokens = append(tokens, string(cur))
	}
	return tokens
}

type noValues struct{}

func (noValues) LookupValue(string) ([]ontology.DimensionValue, error) { return nil, nil }

type missingSource struct{}

func (missingSource) DataSource(id string) (ontology.DataSource, error) {
	return ontology.DataSource{}, assert.AnError
}

func TestChatQuery_NoMetricAnchorReturnsFail(t *testing.T) {
	holder := semindex.NewHolder(semindex.Build(nil))
	engine := inference.New(holder, splitSegmenter{}, noValues{})
	state := semcore.NewState(holder, engine, missingSource{}, poolrouter.NewRouter(missingSource{}))

	resp := state.ChatQuery("A公司")
	assert.Equal(t, semcore.StatusFail, resp.Status)
	assert.NotEmpty(t, resp.Answer)
}

func TestChatQuery_MetricAmbiguousReturnsAmbiguous(t *testing.T) {
	nodes := []ontology.SemanticNode{
		{ID: "m1", Label: "收益额", Role: ontology.RoleMetric, SourceID: "s1", TargetTable: "t", SQLExpression: "amount"},
		{ID: "m2", Label: "净收益额", Role: ontology.RoleMetric, SourceID: "s1", TargetTable: "t2", SQLExpression: "net"},
	}
	holder := semindex.NewHolder(semindex.Build(nodes))
	engine := inference.New(holder, splitSegmenter{}, noValues{})
	engine.Strict = true
	state := semcore.NewState(holder, engine, missingSource{}, poolrouter.NewRouter(missingSource{}))

	resp := state.ChatQuery("收益额 净收益额")
	assert.Equal(t, semcore.StatusAmbiguous, resp.Status)
	assert.ElementsMatch(t, []string{"收益额", "净收益额"}, resp.Candidates)
}

func TestChatQuery_SourceConfigMissingReturnsError(t *testing.T) {
	nodes := []ontology.SemanticNode{
		{ID: "m1", Label: "收益额", Role: ontology.RoleMetric, SourceID: "missing-source", TargetTable: "t", SQLExpression: "amount", DefaultAgg: ontology.AggSum},
	}
	holder := semindex.NewHolder(semindex.Build(nodes))
	engine := inference.New(holder, splitSegmenter{}, noValues{})
	state := semcore.NewState(holder, engine, missingSource{}, poolrouter.NewRouter(missingSource{}))
	state.Verbose = true // exercise the pretty-printed plan debug log path

	resp := state.ChatQuery("收益额")
	assert.Equal(t, semcore.StatusError, resp.Status)
	assert.NotEmpty(t, resp.Message)
}
