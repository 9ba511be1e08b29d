package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/teacher-reports-api/internal/dto"
	"github.com/noah-isme/teacher-reports-api/internal/models"
	appErrors "github.com/noah-isme/teacher-reports-api/pkg/errors"
	"github.com/noah-isme/teacher-reports-api/pkg/export"
)

// Spanish column headers shared by the tabular export formats.
var submissionHeaders = []string{
	"ID", "Nombre Completo", "Correo Institucional", "Año Académico",
	"Periodo", "Estado", "Fecha de Envío", "Duplicado",
}

// ExportService renders period exports in every supported format. All
// datasets are derived from the same cleaned pipeline output so the CSV,
// workbook and bundle variants of a period always agree.
type ExportService struct {
	analytics  *AnalyticsService
	csv        *export.CSVExporter
	excel      *export.ExcelExporter
	json       *export.JSONExporter
	zip        *export.ZipExporter
	pdf        *export.PDFExporter
	maxRecords int
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService constructs an export service.
func NewExportService(analytics *AnalyticsService, maxRecords int, metrics *MetricsService, logger *zap.Logger) *ExportService {
	if maxRecords <= 0 {
		maxRecords = 10000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		analytics:  analytics,
		csv:        export.NewCSVExporter(),
		excel:      export.NewExcelExporter(),
		json:       export.NewJSONExporter(),
		zip:        export.NewZipExporter(),
		pdf:        export.NewPDFExporter(),
		maxRecords: maxRecords,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Generate renders the artifact described by the job and returns the file
// name and content. Used by the report worker and the synchronous endpoints.
func (s *ExportService) Generate(ctx context.Context, job models.ReportJob) (string, []byte, error) {
	start := time.Now()
	var (
		data []byte
		ext  string
		err  error
	)

	switch job.Kind {
	case models.ReportKindWorkbook:
		switch job.Params.Format {
		case models.ReportFormatCSV:
			data, err = s.CSV(ctx, job.Params.Period, job.Params.Status)
			ext = "csv"
		case models.ReportFormatXLSX, "":
			data, err = s.Workbook(ctx, job.Params.Period, job.Params.Status)
			ext = "xlsx"
		case models.ReportFormatJSON:
			data, err = s.JSONDocument(ctx, job.Params.Period)
			ext = "json"
		default:
			return "", nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("format %q is not supported for workbooks", job.Params.Format))
		}
	case models.ReportKindBundle:
		data, err = s.Bundle(ctx, job.Params.Period, job.Params.Status)
		ext = "zip"
	case models.ReportKindNarrative:
		data, err = s.Narrative(ctx, job.Params.Period)
		ext = "pdf"
	default:
		return "", nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown report kind %q", job.Kind))
	}
	if err != nil {
		return "", nil, err
	}

	if s.metrics != nil {
		s.metrics.ObservePipelineStage("export", time.Since(start))
	}
	name := fmt.Sprintf("%s_%s_%s.%s", job.Kind, safePeriod(job.Params.Period), s.now().UTC().Format("20060102T150405"), ext)
	return name, data, nil
}

// CSV renders the period submissions table with metadata comments and a BOM
// so spreadsheet tools open it cleanly.
func (s *ExportService) CSV(ctx context.Context, period, status string) ([]byte, error) {
	records, year, quarter, err := s.periodRecords(ctx, period, status)
	if err != nil {
		return nil, err
	}
	dataset := submissionDataset(records)
	meta := []export.MetaEntry{
		{Key: "Generado", Value: s.now().UTC().Format(time.RFC3339)},
		{Key: "Periodo", Value: describePeriod(year, quarter)},
		{Key: "Total", Value: strconv.Itoa(len(dataset.Rows))},
	}
	return s.csv.RenderWithOptions(dataset, export.CSVOptions{Metadata: meta, IncludeBOM: true})
}

// Workbook renders a multi-sheet XLSX: the submissions table, the monthly
// histogram with a bar chart, and the per-category summary.
func (s *ExportService) Workbook(ctx context.Context, period, status string) ([]byte, error) {
	records, _, _, err := s.periodRecords(ctx, period, status)
	if err != nil {
		return nil, err
	}
	metrics, err := s.analytics.Metrics(ctx, period)
	if err != nil {
		return nil, err
	}

	histogram := histogramDataset(metrics.ByMonth)
	sheets := []export.Sheet{
		{Name: "Envíos", Data: submissionDataset(records)},
		{Name: "Por Mes", Data: histogram},
		{Name: "Actividades", Data: categoryDataset(metrics.Detail)},
	}
	chart := &export.ChartSpec{
		Title:      "Envíos por Mes",
		Cell:       "D2",
		Categories: fmt.Sprintf("'Por Mes'!$A$2:$A$%d", len(histogram.Rows)+1),
		Values:     fmt.Sprintf("'Por Mes'!$B$2:$B$%d", len(histogram.Rows)+1),
	}
	// The exporter draws charts on the first sheet, so the histogram goes first.
	workbookSheets := []export.Sheet{sheets[1], sheets[0], sheets[2]}
	return s.excel.Render(workbookSheets, chart)
}

// JSONDocument renders period metrics as an indented JSON document.
func (s *ExportService) JSONDocument(ctx context.Context, period string) ([]byte, error) {
	metrics, err := s.analytics.Metrics(ctx, period)
	if err != nil {
		return nil, err
	}
	return s.json.Render(dto.MetricsResponse{Metrics: metrics})
}

// Bundle packs the CSV, JSON and workbook variants plus a README into one
// zip archive.
func (s *ExportService) Bundle(ctx context.Context, period, status string) ([]byte, error) {
	csvData, err := s.CSV(ctx, period, status)
	if err != nil {
		return nil, err
	}
	jsonData, err := s.JSONDocument(ctx, period)
	if err != nil {
		return nil, err
	}
	workbook, err := s.Workbook(ctx, period, status)
	if err != nil {
		return nil, err
	}
	readme := strings.Join([]string{
		"Exportación de reportes docentes",
		"",
		"Contenido:",
		"  envios.csv      tabla de envíos del periodo",
		"  metricas.json   métricas agregadas del periodo",
		"  reporte.xlsx    libro con envíos, histograma y actividades",
		"",
		"Generado: " + s.now().UTC().Format(time.RFC3339),
	}, "\n")

	return s.zip.Render([]export.BundleFile{
		{Name: "README.txt", Data: []byte(readme)},
		{Name: "envios.csv", Data: csvData},
		{Name: "metricas.json", Data: jsonData},
		{Name: "reporte.xlsx", Data: workbook},
	})
}

// Narrative renders a prose PDF summarising the period and the dataset-wide
// statistics.
func (s *ExportService) Narrative(ctx context.Context, period string) ([]byte, error) {
	metrics, err := s.analytics.Metrics(ctx, period)
	if err != nil {
		return nil, err
	}
	stats, err := s.analytics.Statistics(ctx)
	if err != nil {
		return nil, err
	}

	sections := []export.ReportSection{
		{
			Heading: "Resumen General",
			Lines: []string{
				fmt.Sprintf("Periodo analizado: %s.", describePeriod(metrics.Year, metrics.Quarter)),
				fmt.Sprintf("Envíos aprobados en el periodo: %d.", metrics.TotalSubmissions),
				fmt.Sprintf("Posibles duplicados detectados: %d.", metrics.DuplicateCount),
				fmt.Sprintf("Total histórico de envíos activos: %d.", stats.General.TotalSubmissions),
			},
		},
		{
			Heading: "Actividad por Mes",
			Lines:   monthLines(metrics.ByMonth),
		},
		{
			Heading: "Actividades Académicas",
			Lines: []string{
				fmt.Sprintf("Cursos impartidos: %d (%d horas en total).", metrics.Detail.Courses.Total, metrics.Detail.Courses.TotalHours),
				fmt.Sprintf("Publicaciones: %d.", metrics.Detail.Publications.Total),
				fmt.Sprintf("Eventos: %d.", metrics.Detail.Events.Total),
				fmt.Sprintf("Diseños curriculares: %d.", metrics.Detail.Designs),
				fmt.Sprintf("Movilidades: %d.", metrics.Detail.Mobilities.Total),
				fmt.Sprintf("Reconocimientos: %d.", metrics.Detail.Recognitions.Total),
				fmt.Sprintf("Certificaciones: %d (%d vigentes).", metrics.Detail.Certifications.Total, metrics.Detail.Certifications.Valid),
			},
		},
		{
			Heading: "Tendencias y Calidad",
			Lines: []string{
				fmt.Sprintf("Tasa de crecimiento: %.2f%%.", stats.Trends.GrowthRatePercent),
				fmt.Sprintf("Proyección anual: %d envíos.", stats.Trends.AnnualProjection),
				fmt.Sprintf("Meses de alta actividad: %s.", joinOrNone(stats.Trends.HighSeasonMonths)),
				fmt.Sprintf("Porcentaje de duplicados: %.2f%%.", stats.Quality.DuplicatePercent),
			},
		},
	}
	return s.pdf.RenderReport("Reporte de Actividades Docentes", sections)
}

// periodRecords runs the pipeline and filters to the requested period and
// optional status, capped at the configured export limit.
func (s *ExportService) periodRecords(ctx context.Context, period, status string) ([]models.CleanRecord, int, int, error) {
	year, quarter, err := s.analytics.ParsePeriod(period)
	if err != nil {
		return nil, 0, 0, err
	}
	records, err := s.analytics.pipeline(ctx)
	if err != nil {
		return nil, 0, 0, err
	}

	wantStatus := models.SubmissionStatus(strings.ToUpper(strings.TrimSpace(status)))
	filtered := make([]models.CleanRecord, 0, len(records))
	for _, record := range records {
		if record.Year != year {
			continue
		}
		if quarter > 0 && record.Quarter != quarter {
			continue
		}
		if wantStatus != "" && record.Status != wantStatus {
			continue
		}
		filtered = append(filtered, record)
		if len(filtered) >= s.maxRecords {
			s.logger.Warn("export truncated at record limit", zap.Int("limit", s.maxRecords))
			break
		}
	}
	return filtered, year, quarter, nil
}

func submissionDataset(records []models.CleanRecord) export.Dataset {
	rows := make([]map[string]string, 0, len(records))
	for _, record := range records {
		duplicate := "No"
		if record.IsDuplicate {
			duplicate = "Sí"
		}
		rows = append(rows, map[string]string{
			"ID":                   record.SubmissionID,
			"Nombre Completo":      record.FullName,
			"Correo Institucional": record.Email,
			"Año Académico":        strconv.Itoa(record.AcademicYear),
			"Periodo":              string(record.Term),
			"Estado":               string(record.Status),
			"Fecha de Envío":       record.SubmittedAt.Format("2006-01-02"),
			"Duplicado":            duplicate,
		})
	}
	return export.Dataset{Headers: submissionHeaders, Rows: rows}
}

func histogramDataset(byMonth []models.MonthCount) export.Dataset {
	rows := make([]map[string]string, 0, len(byMonth))
	for _, month := range byMonth {
		rows = append(rows, map[string]string{
			"Mes":    month.Month,
			"Envíos": strconv.Itoa(month.Count),
		})
	}
	return export.Dataset{Headers: []string{"Mes", "Envíos"}, Rows: rows}
}

func categoryDataset(detail models.CategoryDetail) export.Dataset {
	headers := []string{"Categoría", "Total", "Detalle"}
	rows := []map[string]string{
		{"Categoría": "Cursos", "Total": strconv.Itoa(detail.Courses.Total),
			"Detalle": fmt.Sprintf("%d horas", detail.Courses.TotalHours)},
		{"Categoría": "Publicaciones", "Total": strconv.Itoa(detail.Publications.Total),
			"Detalle": kindBreakdown(detail.Publications.ByStatus)},
		{"Categoría": "Eventos", "Total": strconv.Itoa(detail.Events.Total),
			"Detalle": kindBreakdown(detail.Events.ByRole)},
		{"Categoría": "Diseños Curriculares", "Total": strconv.Itoa(detail.Designs), "Detalle": ""},
		{"Categoría": "Movilidades", "Total": strconv.Itoa(detail.Mobilities.Total),
			"Detalle": kindBreakdown(detail.Mobilities.ByKind)},
		{"Categoría": "Reconocimientos", "Total": strconv.Itoa(detail.Recognitions.Total),
			"Detalle": kindBreakdown(detail.Recognitions.ByKind)},
		{"Categoría": "Certificaciones", "Total": strconv.Itoa(detail.Certifications.Total),
			"Detalle": fmt.Sprintf("%d vigentes", detail.Certifications.Valid)},
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func kindBreakdown(counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %d", key, counts[key]))
	}
	return strings.Join(parts, ", ")
}

func monthLines(byMonth []models.MonthCount) []string {
	lines := make([]string, 0, len(byMonth))
	for _, month := range byMonth {
		if month.Count == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %d envíos.", month.Month, month.Count))
	}
	if len(lines) == 0 {
		lines = append(lines, "Sin envíos registrados en el periodo.")
	}
	return lines
}

func describePeriod(year, quarter int) string {
	if quarter > 0 {
		return fmt.Sprintf("Trimestre %d de %d", quarter, year)
	}
	return fmt.Sprintf("Año %d", year)
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "ninguno"
	}
	return strings.Join(values, ", ")
}

func safePeriod(period string) string {
	if period == "" {
		return "current_year"
	}
	return strings.ReplaceAll(period, "/", "_")
}
