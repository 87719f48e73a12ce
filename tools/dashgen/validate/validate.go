// Package validate checks generated dashboards and rules for PromQL that
// does not parse or references metrics float-tracker does not export.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prometheus/prometheus/promql/parser"

	"github.com/donaldgifford/float-tracker/tools/dashgen/rules"
)

// Result collects problems found during validation. Errors make an artifact
// unusable; warnings flag queries that are likely wrong.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether validation found no errors.
func (r Result) Ok() bool { return len(r.Errors) == 0 }

func (r *Result) merge(o Result) {
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}

// histogramSuffixes are the series Prometheus derives from a histogram.
var histogramSuffixes = []string{"_bucket", "_sum", "_count"}

// Dashboard validates every query expression in a built dashboard.
func Dashboard(dash any, known map[string]bool) Result {
	raw, err := json.Marshal(dash)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("marshaling dashboard: %v", err)}}
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Result{Errors: []string{fmt.Sprintf("decoding dashboard: %v", err)}}
	}

	var exprs []string
	collectExprs(doc, &exprs)
	if len(exprs) == 0 {
		return Result{Errors: []string{"dashboard has no query expressions"}}
	}
	return Exprs(exprs, known)
}

// Rules validates the expressions of every rule in cr.
func Rules(cr rules.PrometheusRule, known map[string]bool) Result {
	return Exprs(cr.Exprs(), known)
}

// Exprs parses each expression and checks the metric names it selects.
func Exprs(exprs []string, known map[string]bool) Result {
	var res Result
	for _, e := range exprs {
		res.merge(expr(e, known))
	}
	return res
}

func expr(e string, known map[string]bool) Result {
	var res Result

	node, err := parser.ParseExpr(e)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("%q: %v", e, err))
		return res
	}

	parser.Inspect(node, func(n parser.Node, path []parser.Node) error {
		vs, ok := n.(*parser.VectorSelector)
		if !ok {
			return nil
		}
		name := vs.Name
		if !known[name] && !known[baseName(name)] {
			res.Errors = append(res.Errors, fmt.Sprintf("%q: unknown metric %s", e, name))
		}
		if strings.HasSuffix(name, "_total") && !inRange(path) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%q: counter %s used without a range", e, name))
		}
		return nil
	})
	return res
}

func baseName(name string) string {
	for _, s := range histogramSuffixes {
		if trimmed, ok := strings.CutSuffix(name, s); ok {
			return trimmed
		}
	}
	return name
}

func inRange(path []parser.Node) bool {
	for _, p := range path {
		if _, ok := p.(*parser.MatrixSelector); ok {
			return true
		}
	}
	return false
}

func collectExprs(v any, out *[]string) {
	switch t := v.(type) {
	case map[string]any:
		if e, ok := t["expr"].(string); ok && e != "" {
			*out = append(*out, e)
		}
		for _, child := range t {
			collectExprs(child, out)
		}
	case []any:
		for _, child := range t {
			collectExprs(child, out)
		}
	}
}
