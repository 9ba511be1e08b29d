package export

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZipExporterRender(t *testing.T) {
	exporter := NewZipExporter()
	payload, err := exporter.Render([]BundleFile{
		{Name: "datos.csv", Data: []byte("a,b\n1,2\n")},
		{Name: "README.txt", Data: []byte("contenido")},
	})
	require.NoError(t, err)

	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	require.NoError(t, err)
	require.Len(t, reader.File, 2)
	assert.Equal(t, "datos.csv", reader.File[0].Name)
	assert.Equal(t, "README.txt", reader.File[1].Name)

	rc, err := reader.File[1].Open()
	require.NoError(t, err)
	defer rc.Close() //nolint:errcheck
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "contenido", string(content))
}

func TestZipExporterRejectsEmptyBundle(t *testing.T) {
	exporter := NewZipExporter()
	_, err := exporter.Render(nil)
	assert.Error(t, err)
}
