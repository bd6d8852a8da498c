// Package ontology holds the persistent data model consumed by the
// inference engine: semantic nodes (metrics and dimensions), their T-Box
// relations, and A-Box dimension values. The store itself is read-only from
// the core's point of view; admin CRUD that writes these rows lives outside
// this module.
package ontology

// Role classifies a SemanticNode as a fact (METRIC) or a filter axis
// (DIMENSION).
type Role string

const (
	RoleMetric    Role = "METRIC"
	RoleDimension Role = "DIMENSION"
)

// Agg is the aggregation function a metric defaults to when no explicit
// aggregation is requested by the query text.
type Agg string

const (
	AggNone  Agg = "NONE"
	AggSum   Agg = "SUM"
	AggAvg   Agg = "AVG"
	AggCount Agg = "COUNT"
	AggMin   Agg = "MIN"
	AggMax   Agg = "MAX"
)

// SemanticTypeDate is the one semantic_type value the inference engine
// treats specially: it drives type-directed time binding.
const SemanticTypeDate = "DATE"

// BusinessConstraint is a (column, operator, value) triple always conjoined
// into the generated WHERE clause for the node that owns it.
type BusinessConstraint struct {
	Column   string
	Operator string
	Value    string
}

// SemanticNode is a single ontology atom: either a metric (a fact with an
// aggregation and a physical table) or a dimension (a filter axis).
type SemanticNode struct {
	ID                 string
	NodeKey            string
	Label              string
	Role               Role
	SemanticType       string
	SourceID           string
	TargetTable        string
	SQLExpression      string
	AliasNames         []string
	DefaultConstraints []BusinessConstraint
	DefaultAgg         Agg
	DatasetID          string
	ValueFormat        string
	SupportedDimIDs    []string // populated for METRIC nodes only
}

// IsDate reports whether this node's semantic_type is the reserved DATE tag.
func (n SemanticNode) IsDate() bool {
	return n.SemanticType == SemanticTypeDate
}

// DisplayNames returns the label followed by every alias, the full set of
// strings a user might utter for this node.
func (n SemanticNode) DisplayNames() []string {
	names := make([]string, 0, 1+len(n.AliasNames))
	names = append(names, n.Label)
	names = append(names, n.AliasNames...)
	return names
}

// MetricDimensionEdge is a directed T-Box relation: a METRIC node declares
// that it supports filtering by a DIMENSION node.
type MetricDimensionEdge struct {
	MetricNodeID    string
	DimensionNodeID string
}

// DimensionValue is a single A-Box fact: the human-facing label a user
// might type, and the physical code to embed in generated SQL.
type DimensionValue struct {
	DimensionNodeID string
	ValueLabel      string
	ValueCode       string
}

// DBType enumerates the dialects the pool router and plan lowerer support.
type DBType string

const (
	DBTypePostgres DBType = "postgres"
	DBTypeMySQL    DBType = "mysql"
)

// DataSource is a registered external database the pool router can connect
// to and the plan lowerer can target.
type DataSource struct {
	ID            string
	DBType        DBType
	ConnectionURL string
	DisplayName   string
}
