package export

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// BundleFile is one named entry inside a zip bundle.
type BundleFile struct {
	Name string
	Data []byte
}

// ZipExporter packs rendered exports into a single downloadable archive.
type ZipExporter struct{}

// NewZipExporter constructs a zip exporter.
func NewZipExporter() *ZipExporter {
	return &ZipExporter{}
}

// Render writes all files into a zip archive in the given order.
func (e *ZipExporter) Render(files []BundleFile) ([]byte, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("zip bundle requires at least one file")
	}
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for _, file := range files {
		if file.Name == "" {
			return nil, fmt.Errorf("zip entry requires a name")
		}
		entry, err := w.Create(file.Name)
		if err != nil {
			return nil, fmt.Errorf("create zip entry %s: %w", file.Name, err)
		}
		if _, err := entry.Write(file.Data); err != nil {
			return nil, fmt.Errorf("write zip entry %s: %w", file.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalise zip: %w", err)
	}
	return buf.Bytes(), nil
}
