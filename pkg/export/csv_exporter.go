package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// MetaEntry is a single ordered metadata line emitted above the CSV header.
type MetaEntry struct {
	Key   string
	Value string
}

// CSVOptions tune the rendered output.
type CSVOptions struct {
	// Metadata lines are written as "# key: value" comments before the header.
	Metadata []MetaEntry
	// IncludeBOM prepends the UTF-8 byte order mark so spreadsheet tools
	// detect the encoding.
	IncludeBOM bool
}

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	return e.RenderWithOptions(data, CSVOptions{})
}

// RenderWithOptions produces CSV bytes honouring metadata comments and BOM.
func (e *CSVExporter) RenderWithOptions(data Dataset, opts CSVOptions) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	if opts.IncludeBOM {
		buf.Write([]byte{0xEF, 0xBB, 0xBF})
	}
	for _, entry := range opts.Metadata {
		fmt.Fprintf(buf, "# %s: %s\n", entry.Key, entry.Value)
	}
	if len(opts.Metadata) > 0 {
		buf.WriteByte('\n')
	}

	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
