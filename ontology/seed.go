package ontology

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// seedNode mirrors SemanticNode's fields with yaml tags, the same split the
// teacher keeps between its wire/config structs (tagged) and its internal
// model structs (untagged) in database/database.go.
type seedNode struct {
	ID                 string               `yaml:"id"`
	NodeKey            string               `yaml:"node_key"`
	Label              string               `yaml:"label"`
	Role               Role                 `yaml:"role"`
	SemanticType       string               `yaml:"semantic_type"`
	SourceID           string               `yaml:"source_id"`
	TargetTable        string               `yaml:"target_table"`
	SQLExpression      string               `yaml:"sql_expression"`
	AliasNames         []string             `yaml:"alias_names"`
	DefaultConstraints []BusinessConstraint `yaml:"default_constraints"`
	DefaultAgg         Agg                  `yaml:"default_agg"`
	DatasetID          string               `yaml:"dataset_id"`
	ValueFormat        string               `yaml:"value_format"`
	SupportedDimIDs    []string             `yaml:"supported_dim_ids"`
}

// seedFile is the top-level shape of an ontology.seed.yaml document: a flat
// list of nodes, useful for local development and fixture-driven tests
// against a meta-DB-less ontology.Store stand-in.
type seedFile struct {
	Nodes []seedNode `yaml:"nodes"`
}

// LoadSeedNodes reads a YAML ontology seed document and returns the decoded
// nodes in file order. It performs no T-Box/A-Box validation — callers feed
// the result straight to semindex.Build the same way Store.LoadNodes does.
func LoadSeedNodes(r io.Reader) ([]SemanticNode, error) {
	dec := yaml.NewDecoder(r)
	var f seedFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode ontology seed: %w", err)
	}

	nodes := make([]SemanticNode, 0, len(f.Nodes))
	for _, sn := range f.Nodes {
		nodes = append(nodes, SemanticNode{
			ID:                 sn.ID,
			NodeKey:            sn.NodeKey,
			Label:              sn.Label,
			Role:               sn.Role,
			SemanticType:       sn.SemanticType,
			SourceID:           sn.SourceID,
			TargetTable:        sn.TargetTable,
			SQLExpression:      sn.SQLExpression,
			AliasNames:         sn.AliasNames,
			DefaultConstraints: sn.DefaultConstraints,
			DefaultAgg:         sn.DefaultAgg,
			DatasetID:          sn.DatasetID,
			ValueFormat:        sn.ValueFormat,
			SupportedDimIDs:    sn.SupportedDimIDs,
		})
	}
	return nodes, nil
}

// LoadSeedNodesFile is a convenience wrapper around LoadSeedNodes for the
// common case of a path on disk.
func LoadSeedNodesFile(path string) ([]SemanticNode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ontology seed %s: %w", path, err)
	}
	defer f.Close()
	return LoadSeedNodes(f)
}
