// Package lowerer turns a LogicalPlan into dialect-specific SQL, per
// section 4.4.
package lowerer

import (
	"fmt"
	"strings"

	"github.com/nlsql/semcore/inference"
	"github.com/nlsql/semcore/ontology"
	"github.com/nlsql/semcore/util"
)

// avgTrigger is the literal substring that forces AVG regardless of the
// metric's declared default_agg.
const avgTrigger = "平均"

// Lowerer lowers a LogicalPlan to SQL text for a target dialect.
type Lowerer struct {
	// EscapeQuotes doubles single quotes in emitted literals when true.
	// Default false preserves the source system's documented (and
	// deliberately unescaped) behavior — see Open Question #3.
	EscapeQuotes bool
}

// New returns a Lowerer with the spec's default (unescaped) behavior.
func New() *Lowerer {
	return &Lowerer{EscapeQuotes: false}
}

func (l *Lowerer) quote(v string) string {
	if l.EscapeQuotes {
		v = strings.ReplaceAll(v, "'", "''")
	}
	return "'" + v + "'"
}

// Lower renders plan as a SQL string for dbType, given the raw query text
// (needed only to detect the "平均" aggregation override).
func (l *Lowerer) Lower(plan *inference.LogicalPlan, rawQuery string, dbType ontology.DBType) string {
	agg := l.resolveAgg(plan.Metric, rawQuery)

	selectCols := l.selectClause(plan, agg)
	where := l.whereClause(plan)
	from := plan.Metric.TargetTable
	groupBy := l.groupByClause(plan, agg)

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s", selectCols, from, where)
	if groupBy != "" {
		sql += " GROUP BY " + groupBy
	}

	if dbType == ontology.DBTypeMySQL {
		sql = strings.ReplaceAll(sql, "$1", "?")
	}
	return sql
}

func (l *Lowerer) resolveAgg(metric ontology.SemanticNode, rawQuery string) ontology.Agg {
	if strings.Contains(rawQuery, avgTrigger) {
		return ontology.AggAvg
	}
	return metric.DefaultAgg
}

func (l *Lowerer) selectClause(plan *inference.LogicalPlan, agg ontology.Agg) string {
	var cols []string
	for _, f := range plan.Filters {
		cols = append(cols, fmt.Sprintf("%s AS %q", f.Dim.SQLExpression, f.Dim.Label))
	}
	if agg == ontology.AggNone || agg == "" {
		cols = append(cols, fmt.Sprintf("%s AS %q", plan.Metric.SQLExpression, plan.Metric.Label))
	} else {
		cols = append(cols, fmt.Sprintf("%s(%s) AS %q", agg, plan.Metric.SQLExpression, plan.Metric.Label))
	}
	return strings.Join(cols, ", ")
}

func (l *Lowerer) whereClause(plan *inference.LogicalPlan) string {
	conds := []string{"1=1"}

	for _, f := range plan.Filters {
		conds = append(conds, fmt.Sprintf("%s = %s", f.Dim.SQLExpression, l.quote(f.Value)))
	}
	for _, c := range plan.Metric.DefaultConstraints {
		conds = append(conds, fmt.Sprintf("%s %s %s", c.Column, c.Operator, l.quote(c.Value)))
	}
	for _, f := range plan.Filters {
		for _, c := range f.Dim.DefaultConstraints {
			conds = append(conds, fmt.Sprintf("%s %s %s", c.Column, c.Operator, l.quote(c.Value)))
		}
	}

	return strings.Join(conds, " AND ")
}

func (l *Lowerer) groupByClause(plan *inference.LogicalPlan, agg ontology.Agg) string {
	if agg == ontology.AggNone || agg == "" || len(plan.Filters) == 0 {
		return ""
	}
	exprs := util.TransformSlice(plan.Filters, func(f inference.Filter) string { return f.Dim.SQLExpression })
	return strings.Join(exprs, ", ")
}
