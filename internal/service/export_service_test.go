package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/teacher-reports-api/internal/dto"
	"github.com/noah-isme/teacher-reports-api/internal/models"
)

func newExportService(source *fakeSubmissionSource) *ExportService {
	analytics := newAnalyticsService(source, &fakeAggregator{})
	return NewExportService(analytics, 100, nil, nil)
}

func exportFixture() *fakeSubmissionSource {
	return &fakeSubmissionSource{subs: []models.Submission{
		submission("Dra. Ana Torres", "ana.torres@uni.edu", models.StatusApproved,
			time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)),
		submission("Luis Mora", "luis.mora@uni.edu", models.StatusApproved,
			time.Date(2024, time.August, 21, 0, 0, 0, 0, time.UTC)),
		submission("Eva Ruiz", "eva.ruiz@uni.edu", models.StatusPending,
			time.Date(2024, time.August, 22, 0, 0, 0, 0, time.UTC)),
	}}
}

func TestCSVExportRoundTrip(t *testing.T) {
	svc := newExportService(exportFixture())

	data, err := svc.CSV(context.Background(), "year_2024", "")

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))

	text := string(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, text, "# Periodo: Año 2024")
	assert.Contains(t, text, "# Total: 3")
	assert.Contains(t, text, "Nombre Completo")
	assert.Contains(t, text, "Dra. Ana Torres")
	assert.Contains(t, text, "luis.mora@uni.edu")
}

func TestCSVExportStatusFilter(t *testing.T) {
	svc := newExportService(exportFixture())

	data, err := svc.CSV(context.Background(), "year_2024", "pending")

	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Eva Ruiz")
	assert.NotContains(t, text, "Luis Mora")
}

func TestWorkbookExportSheets(t *testing.T) {
	svc := newExportService(exportFixture())

	data, err := svc.Workbook(context.Background(), "year_2024", "")

	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	sheets := f.GetSheetList()
	assert.ElementsMatch(t, []string{"Por Mes", "Envíos", "Actividades"}, sheets)

	month, err := f.GetCellValue("Por Mes", "A4")
	require.NoError(t, err)
	assert.Equal(t, "Marzo", month)
	count, err := f.GetCellValue("Por Mes", "B4")
	require.NoError(t, err)
	assert.Equal(t, "1", count)
}

func TestJSONDocumentExport(t *testing.T) {
	svc := newExportService(exportFixture())

	data, err := svc.JSONDocument(context.Background(), "year_2024")

	require.NoError(t, err)
	var doc dto.MetricsResponse
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 2024, doc.Metrics.Year)
	assert.Equal(t, 2, doc.Metrics.TotalSubmissions)
}

func TestBundleExportEntries(t *testing.T) {
	svc := newExportService(exportFixture())

	data, err := svc.Bundle(context.Background(), "year_2024", "")

	require.NoError(t, err)
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := make([]string, 0, len(reader.File))
	for _, file := range reader.File {
		names = append(names, file.Name)
	}
	assert.ElementsMatch(t, []string{"README.txt", "envios.csv", "metricas.json", "reporte.xlsx"}, names)
}

func TestNarrativeExportIsPDF(t *testing.T) {
	svc := newExportService(exportFixture())

	data, err := svc.Narrative(context.Background(), "year_2024")

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestGenerateDispatch(t *testing.T) {
	svc := newExportService(exportFixture())

	name, data, err := svc.Generate(context.Background(), models.ReportJob{
		Kind:   models.ReportKindWorkbook,
		Params: models.ReportJobParams{Period: "year_2024", Format: models.ReportFormatCSV},
	})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "workbook_year_2024_"))
	assert.True(t, strings.HasSuffix(name, ".csv"))
	assert.NotEmpty(t, data)
}

func TestGenerateRejectsUnknownKind(t *testing.T) {
	svc := newExportService(exportFixture())

	_, _, err := svc.Generate(context.Background(), models.ReportJob{Kind: "poster"})

	assert.Error(t, err)
}
