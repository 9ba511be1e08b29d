package export

import (
	"encoding/json"
	"fmt"
)

// JSONExporter serialises arbitrary documents with stable indentation.
type JSONExporter struct{}

// NewJSONExporter constructs a JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Render marshals the document with two-space indentation.
func (e *JSONExporter) Render(doc interface{}) ([]byte, error) {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render json document: %w", err)
	}
	return payload, nil
}
