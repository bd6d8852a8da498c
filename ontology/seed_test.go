package ontology

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleSeed = `
nodes:
  - id: metric-1
    label: 收益额
    role: METRIC
    semantic_type: NUMBER
    target_table: revenue_fact
    sql_expression: revenue_fact.amount
    default_agg: SUM
    supported_dim_ids:
      - dim-1
  - id: dim-1
    label: 结算平台
    role: DIMENSION
    semantic_type: TEXT
    sql_expression: revenue_fact.platform_code
    alias_names:
      - 平台
`

func TestLoadSeedNodes(t *testing.T) {
	nodes, err := LoadSeedNodes(strings.NewReader(sampleSeed))
	assert.NoError(t, err)
	assert.Len(t, nodes, 2)

	assert.Equal(t, "metric-1", nodes[0].ID)
	assert.Equal(t, RoleMetric, nodes[0].Role)
	assert.Equal(t, AggSum, nodes[0].DefaultAgg)
	assert.Equal(t, []string{"dim-1"}, nodes[0].SupportedDimIDs)

	assert.Equal(t, RoleDimension, nodes[1].Role)
	assert.Equal(t, []string{"平台"}, nodes[1].AliasNames)
}

func TestLoadSeedNodesFile_MissingFile(t *testing.T) {
	_, err := LoadSeedNodesFile("/does/not/exist.yaml")
	assert.Error(t, err)
}
