package store

import (
	"fmt"
	"strings"
	"time"
)

// RunFilter selects runs for ListRunsMatching. Zero fields match every run.
type RunFilter struct {
	Status       RunStatus
	ProtocolName string
	ErrorCode    string
	// Since keeps runs started at or after this instant.
	Since time.Time
	// Limit caps the result; 0 returns all matches.
	Limit int
}

// predicate is a WHERE-clause node. The interface is sealed to this file so
// compilePredicate can switch exhaustively.
type predicate interface {
	predicateNode()
}

// equals matches column = value.
type equals struct {
	column string
	value  any
}

// atLeast matches column >= value.
type atLeast struct {
	column string
	value  any
}

// and matches when every predicate matches. An empty and matches all rows.
type and struct {
	predicates []predicate
}

func (equals) predicateNode()  {}
func (atLeast) predicateNode() {}
func (and) predicateNode()     {}

// filterColumns are the only columns a predicate may name. Column names
// are interpolated into SQL; values never are.
var filterColumns = map[string]bool{
	"status":        true,
	"protocol_name": true,
	"error_code":    true,
	"started_at":    true,
}

// predicate lowers the filter into the predicate tree.
func (f RunFilter) predicate() predicate {
	var preds []predicate
	if f.Status != "" {
		preds = append(preds, equals{column: "status", value: string(f.Status)})
	}
	if f.ProtocolName != "" {
		preds = append(preds, equals{column: "protocol_name", value: f.ProtocolName})
	}
	if f.ErrorCode != "" {
		preds = append(preds, equals{column: "error_code", value: f.ErrorCode})
	}
	if !f.Since.IsZero() {
		preds = append(preds, atLeast{column: "started_at", value: f.Since.UnixMilli()})
	}
	return and{predicates: preds}
}

// compileRunQuery builds the SELECT for f. Every query orders by start time
// with the id as a stable tiebreaker.
func compileRunQuery(f RunFilter) (string, []any, error) {
	if f.Limit < 0 {
		return "", nil, fmt.Errorf("limit must not be negative, got %d", f.Limit)
	}
	where, params, err := compilePredicate(f.predicate())
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY started_at DESC, id COLLATE BINARY ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		params = append(params, f.Limit)
	}
	return query, params, nil
}

// compilePredicate returns the SQL fragment and its parameters. An empty
// fragment means no filtering.
func compilePredicate(p predicate) (string, []any, error) {
	switch pred := p.(type) {
	case equals:
		return compileComparison(pred.column, "=", pred.value)
	case atLeast:
		return compileComparison(pred.column, ">=", pred.value)
	case and:
		var parts []string
		var params []any
		for _, child := range pred.predicates {
			sql, childParams, err := compilePredicate(child)
			if err != nil {
				return "", nil, err
			}
			if sql == "" {
				continue
			}
			parts = append(parts, sql)
			params = append(params, childParams...)
		}
		return strings.Join(parts, " AND "), params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileComparison(column, op string, value any) (string, []any, error) {
	if !filterColumns[column] {
		return "", nil, fmt.Errorf("column %q cannot be filtered", column)
	}
	return fmt.Sprintf("%s %s ?", column, op), []any{value}, nil
}
