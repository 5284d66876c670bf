package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Column detection is substring matching over lowercased header names, first
// hit wins in header order.
var columnPatterns = []struct {
	target   func(*ColumnMapping) *string
	patterns []string
}{
	{func(m *ColumnMapping) *string { return &m.PostedDate }, []string{"post date", "posted"}},
	{func(m *ColumnMapping) *string { return &m.Date }, []string{"date"}},
	{func(m *ColumnMapping) *string { return &m.Description }, []string{"desc", "memo", "payee", "merchant", "name"}},
	{func(m *ColumnMapping) *string { return &m.Debit }, []string{"debit", "withdrawal"}},
	{func(m *ColumnMapping) *string { return &m.Credit }, []string{"credit", "deposit"}},
	{func(m *ColumnMapping) *string { return &m.Amount }, []string{"amount"}},
}

// DetectColumns reads the file header and guesses a column mapping. The
// result may still be incomplete; Options.Validate is the arbiter.
func DetectColumns(path string) (ColumnMapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return ColumnMapping{}, fmt.Errorf("csvfile: open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ColumnMapping{}, errors.New("csvfile: file is empty")
		}
		return ColumnMapping{}, fmt.Errorf("csvfile: read header: %w", err)
	}

	var mapping ColumnMapping
	for _, column := range header {
		column = strings.TrimSpace(column)
		lowered := strings.ToLower(column)
		// Each header column feeds at most one slot.
	rules:
		for _, rule := range columnPatterns {
			slot := rule.target(&mapping)
			if *slot != "" {
				continue
			}
			for _, pattern := range rule.patterns {
				if strings.Contains(lowered, pattern) {
					*slot = column
					break rules
				}
			}
		}
	}
	return mapping, nil
}
