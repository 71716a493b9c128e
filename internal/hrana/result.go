// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

package hrana

// Column describes one result column. Both fields may be absent for
// computed expressions.
type Column struct {
	Name     *string `json:"name"`
	Decltype *string `json:"decltype"`
}

// DisplayName returns the column name, or the empty string when the server
// sent none.
func (c Column) DisplayName() string {
	if c.Name == nil {
		return ""
	}
	return *c.Name
}

// StmtResult is the outcome of a successfully executed statement: the
// column descriptors, the rows (each aligned with Cols), and the server's
// execution counters.
type StmtResult struct {
	Cols             []Column  `json:"cols"`
	Rows             [][]Value `json:"rows"`
	AffectedRowCount int64     `json:"affected_row_count"`
	RowsRead         int64     `json:"rows_read"`
	RowsWritten      int64     `json:"rows_written"`
	QueryDurationMs  float64   `json:"query_duration_ms"`
}
