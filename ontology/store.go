package ontology

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// Store is the meta-DB reader the core consumes. It is read-only from the
// request path's point of view; admin writes land in these same tables
// through a separate, out-of-scope CRUD surface.
type Store struct {
	db *sql.DB
}

// NewStore opens the meta-database. DATABASE_URL is expected to be a
// Postgres connection string, per the schema in spec section 6.
func NewStore(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("ontology: open meta-db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ontology: ping meta-db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// LoadNodes returns every ontology node joined with its 1:1 definition row
// and its aggregated supported_dimension_ids (for METRIC nodes). This is
// the single full-table read the hot-reload routine uses to rebuild the
// Semantic Index; per-node queries would risk torn reads under concurrent
// admin mutation.
func (s *Store) LoadNodes() ([]SemanticNode, error) {
	rows, err := s.db.Query(`
		SELECT
			n.id, n.node_key, n.label, n.node_role, n.semantic_type, COALESCE(n.dataset_id::text, ''),
			d.source_id, d.target_table, d.sql_expression, d.alias_names, d.default_constraints,
			d.default_agg, COALESCE(d.value_format, ''),
			COALESCE(
				(SELECT array_agg(r.dimension_node_id::text)
				 FROM metric_dimension_rels r
				 WHERE r.metric_node_id = n.id),
				'{}'
			)
		FROM ontology_nodes n
		JOIN semantic_definitions d ON d.node_id = n.id
	`)
	if err != nil {
		return nil, fmt.Errorf("ontology: load nodes: %w", err)
	}
	defer rows.Close()

	var nodes []SemanticNode
	for rows.Next() {
		var (
			n                  SemanticNode
			role               string
			aliasNames         []string
			defaultConstraints []byte
			agg                string
			supportedDimIDs    []string
		)
		if err := rows.Scan(
			&n.ID, &n.NodeKey, &n.Label, &role, &n.SemanticType, &n.DatasetID,
			&n.SourceID, &n.TargetTable, &n.SQLExpression, pq.Array(&aliasNames), &defaultConstraints,
			&agg, &n.ValueFormat,
			pq.Array(&supportedDimIDs),
		); err != nil {
			return nil, fmt.Errorf("ontology: scan node: %w", err)
		}
		n.Role = Role(role)
		n.AliasNames = aliasNames
		n.DefaultAgg = Agg(agg)
		n.SupportedDimIDs = supportedDimIDs

		constraints, err := decodeConstraints(defaultConstraints)
		if err != nil {
			return nil, fmt.Errorf("ontology: decode constraints for %s: %w", n.NodeKey, err)
		}
		n.DefaultConstraints = constraints

		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func decodeConstraints(raw []byte) ([]BusinessConstraint, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var wire []struct {
		Column   string `json:"column"`
		Operator string `json:"operator"`
		Value    string `json:"value"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	out := make([]BusinessConstraint, 0, len(wire))
	for _, w := range wire {
		out = append(out, BusinessConstraint{Column: w.Column, Operator: w.Operator, Value: w.Value})
	}
	return out, nil
}

// LookupValue resolves the A-Box candidates for a single token: every
// (dimension_node_id, value_code) pair whose value_label matches exactly.
func (s *Store) LookupValue(label string) ([]DimensionValue, error) {
	rows, err := s.db.Query(
		`SELECT dimension_node_id::text, value_label, value_code FROM dimension_values WHERE value_label = $1`,
		label,
	)
	if err != nil {
		return nil, fmt.Errorf("ontology: lookup value %q: %w", label, err)
	}
	defer rows.Close()

	var values []DimensionValue
	for rows.Next() {
		var v DimensionValue
		if err := rows.Scan(&v.DimensionNodeID, &v.ValueLabel, &v.ValueCode); err != nil {
			return nil, fmt.Errorf("ontology: scan value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// AllValueLabels returns every distinct A-Box value_label, used by the
// hot-reload routine to seed the tokenizer's custom dictionary.
func (s *Store) AllValueLabels() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT value_label FROM dimension_values`)
	if err != nil {
		return nil, fmt.Errorf("ontology: load value labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("ontology: scan value label: %w", err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// DataSources returns every registered external data source.
func (s *Store) DataSources() ([]DataSource, error) {
	rows, err := s.db.Query(`SELECT id, db_type, connection_url, COALESCE(display_name, '') FROM data_sources`)
	if err != nil {
		return nil, fmt.Errorf("ontology: load data sources: %w", err)
	}
	defer rows.Close()

	var sources []DataSource
	for rows.Next() {
		var ds DataSource
		var dbType string
		if err := rows.Scan(&ds.ID, &dbType, &ds.ConnectionURL, &ds.DisplayName); err != nil {
			return nil, fmt.Errorf("ontology: scan data source: %w", err)
		}
		ds.DBType = DBType(dbType)
		sources = append(sources, ds)
	}
	return sources, rows.Err()
}

// DataSource resolves a single source by id, used by the pool router on a
// pool-cache miss.
func (s *Store) DataSource(id string) (DataSource, error) {
	var ds DataSource
	var dbType string
	err := s.db.QueryRow(
		`SELECT id, db_type, connection_url, COALESCE(display_name, '') FROM data_sources WHERE id = $1`,
		id,
	).Scan(&ds.ID, &dbType, &ds.ConnectionURL, &ds.DisplayName)
	if err != nil {
		return DataSource{}, fmt.Errorf("ontology: load data source %s: %w", id, err)
	}
	ds.DBType = DBType(dbType)
	return ds, nil
}
