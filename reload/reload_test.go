package reload_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlsql/semcore/ontology"
	"github.com/nlsql/semcore/reload"
	"github.com/nlsql/semcore/semindex"
)

type fakeStore struct {
	nodes       []ontology.SemanticNode
	valueLabels []string
}

func (f fakeStore) LoadNodes() ([]ontology.SemanticNode, error) { return f.nodes, nil }
func (f fakeStore) AllValueLabels() ([]string, error)           { return f.valueLabels, nil }

type recordingTokenizer struct {
	calls [][]string

	// holder, when set, is probed on every refresh; indexSizes records how
	// many nodes the live index held at that moment.
	holder     *semindex.Holder
	indexSizes []int
}

func (r *recordingTokenizer) RefreshCustomWords(words []string) {
	cp := append([]string(nil), words...)
	r.calls = append(r.calls, cp)
	if r.holder != nil {
		r.indexSizes = append(r.indexSizes, len(r.holder.Get().All()))
	}
}

func TestReloader_SwapsIndexBeforeRefreshingTokenizer(t *testing.T) {
	store := fakeStore{
		nodes: []ontology.SemanticNode{
			{ID: "n1", Label: "收益额", Role: ontology.RoleMetric},
		},
		valueLabels: []string{"A公司"},
	}
	holder := semindex.NewHolder(nil)
	tok := &recordingTokenizer{holder: holder}

	r := reload.New(store, holder, tok)
	require.NoError(t, r.Run(context.Background()))

	// The index must already reflect the new nodes by the time the
	// tokenizer refresh call happens.
	assert.Equal(t, []int{1}, tok.indexSizes)
	_, ok := holder.Get().Lookup("收益额")
	assert.True(t, ok)

	require.Len(t, tok.calls, 1)
	assert.Contains(t, tok.calls[0], "收益额")
	assert.Contains(t, tok.calls[0], "A公司")
}

func TestReloader_IdempotentAcrossRuns(t *testing.T) {
	store := fakeStore{
		nodes: []ontology.SemanticNode{
			{ID: "n1", Label: "收益额", AliasNames: []string{"收入"}, Role: ontology.RoleMetric},
		},
		valueLabels: []string{"A公司", "B公司"},
	}
	holder := semindex.NewHolder(nil)
	tok := &recordingTokenizer{}
	r := reload.New(store, holder, tok)

	require.NoError(t, r.Run(context.Background()))
	first := holder.Get()
	require.NoError(t, r.Run(context.Background()))
	second := holder.Get()

	for _, label := range []string{"收益额", "收入"} {
		n1, ok1 := first.Lookup(label)
		n2, ok2 := second.Lookup(label)
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, n1.ID, n2.ID)
	}

	// RefreshCustomWords was called twice, but with the same effective
	// word set each time (idempotence, section 8).
	require.Len(t, tok.calls, 2)
	assert.ElementsMatch(t, tok.calls[0], tok.calls[1])
}
