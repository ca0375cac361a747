package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryResult is the outcome of one sandboxed execution. Zero rows is success.
type QueryResult struct {
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	ElapsedMs int64            `json:"elapsed_ms"`
}

// SQLExecutor runs validated statements. Implemented by ReadOnlyExecutor; the
// interface exists so the orchestrator can be tested without a database.
type SQLExecutor interface {
	Execute(ctx context.Context, sql string) (*QueryResult, error)
}

// ReadOnlyExecutor runs each statement in a read-only transaction, as a second
// wall behind ValidateSQL.
type ReadOnlyExecutor struct {
	db *pgxpool.Pool
}

// NewReadOnlyExecutor creates a ReadOnlyExecutor.
func NewReadOnlyExecutor(db *pgxpool.Pool) *ReadOnlyExecutor {
	return &ReadOnlyExecutor{db: db}
}

// Execute runs one validated SELECT and returns its columns and rows.
func (e *ReadOnlyExecutor) Execute(ctx context.Context, sql string) (*QueryResult, error) {
	start := time.Now()

	tx, err := e.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin read-only tx: %w", err)
	}

	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}

	defer rows.Close()

	descriptions := rows.FieldDescriptions()

	columns := make([]string, 0, len(descriptions))
	for _, desc := range descriptions {
		columns = append(columns, desc.Name)
	}

	var resultRows []map[string]any

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = values[i]
		}

		resultRows = append(resultRows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return &QueryResult{
		Columns:   columns,
		Rows:      resultRows,
		RowCount:  len(resultRows),
		ElapsedMs: time.Since(start).Milliseconds(),
	}, nil
}
