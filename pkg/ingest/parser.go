package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/agentstation/reconify/pkg/errors"
	"github.com/agentstation/reconify/pkg/recon"
)

// Warning is a non-fatal issue encountered while parsing an upload. Rows
// that raise warnings are repaired (padded or truncated) rather than
// dropped, so totals stay honest against the source file.
type Warning struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Result is a parsed upload: normalized headers, one Row per data row, and
// any repair warnings.
type Result struct {
	Document *recon.Document `json:"document"`
	Encoding string          `json:"encoding"`
	Warnings []Warning       `json:"warnings,omitempty"`
}

// Parser turns raw upload bytes into a tabular document.
type Parser interface {
	Parse(data []byte) (*Result, error)
}

// CSVParser parses comma-separated uploads. Headers are normalized
// (trimmed, lowercased) and must be unique after normalization; rows with
// the wrong column count are padded or truncated to match the header.
type CSVParser struct{}

// NewCSVParser returns a parser for CSV uploads.
func NewCSVParser() *CSVParser { return &CSVParser{} }

// Parse implements Parser.
func (p *CSVParser) Parse(data []byte) (*Result, error) {
	decoded, encName, err := decode(data)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(decoded))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.NewParseError("csv", "", "empty file: no header row", nil)
		}
		return nil, errors.WrapParse("csv", "", err)
	}

	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		n := recon.NormalizeHeader(h)
		if n == "" {
			return nil, errors.NewParseError("csv", "", fmt.Sprintf("blank header in column %d", i+1), nil)
		}
		if prev, dup := seen[n]; dup {
			return nil, errors.NewParseError("csv", "",
				fmt.Sprintf("duplicate header %q in columns %d and %d", n, prev+1, i+1), nil)
		}
		seen[n] = i
		columns[i] = n
	}

	var rows []recon.Row
	var warnings []Warning
	rowNum := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			warnings = append(warnings, Warning{Row: rowNum, Message: fmt.Sprintf("parse error: %v", err)})
			continue
		}

		switch {
		case len(record) < len(columns):
			warnings = append(warnings, Warning{
				Row:     rowNum,
				Message: fmt.Sprintf("row has %d columns, expected %d; padding", len(record), len(columns)),
			})
			padded := make([]string, len(columns))
			copy(padded, record)
			record = padded
		case len(record) > len(columns):
			warnings = append(warnings, Warning{
				Row:     rowNum,
				Message: fmt.Sprintf("row has %d columns, expected %d; truncating", len(record), len(columns)),
			})
			record = record[:len(columns)]
		}

		row := make(recon.Row, len(columns))
		for i, col := range columns {
			row[col] = strings.TrimSpace(record[i])
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, errors.NewParseError("csv", "", "file contains no data rows", nil)
	}

	return &Result{
		Document: &recon.Document{Columns: columns, Rows: rows},
		Encoding: encName,
		Warnings: warnings,
	}, nil
}
