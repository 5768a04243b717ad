package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lumenlms/insights-api/internal/models"
	"github.com/lumenlms/insights-api/pkg/export"
)

// ReportFormat selects the rendering backend for course reports.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ParseReportFormat validates a raw format string.
func ParseReportFormat(raw string) (ReportFormat, error) {
	switch ReportFormat(strings.ToLower(raw)) {
	case ReportFormatCSV:
		return ReportFormatCSV, nil
	case ReportFormatPDF:
		return ReportFormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported format %q", raw)
	}
}

// ExportResult is a rendered report ready for download.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

type csvRenderer interface {
	Render(report export.Report) ([]byte, error)
}

type pdfRenderer interface {
	Render(report export.Report) ([]byte, error)
}

// ExportService renders course insight reports for download.
type ExportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// Generate renders the course insight report in the requested format.
func (s *ExportService) Generate(insights *BatchInsights, format ReportFormat) (*ExportResult, error) {
	if insights == nil {
		return nil, fmt.Errorf("insights nil")
	}

	report := s.buildReport(insights)

	var payload []byte
	var err error
	var contentType string
	switch format {
	case ReportFormatCSV:
		payload, err = s.csv.Render(report)
		contentType = "text/csv"
	case ReportFormatPDF:
		payload, err = s.pdf.Render(report)
		contentType = "application/pdf"
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("course-insights-%s-%s.%s", insights.CourseID, s.now().UTC().Format("20060102"), format)
	s.logger.Info("report rendered",
		zap.String("course_id", insights.CourseID),
		zap.String("format", string(format)),
		zap.Int("bytes", len(payload)),
	)

	return &ExportResult{Filename: filename, ContentType: contentType, Payload: payload}, nil
}

func (s *ExportService) buildReport(insights *BatchInsights) export.Report {
	summary := []export.SummaryLine{
		{Label: "Course", Value: insights.CourseID},
		{Label: "Generated", Value: s.now().UTC().Format(time.RFC3339)},
		{Label: "Students", Value: strconv.Itoa(len(insights.Students))},
		{Label: "High Risk Students", Value: strconv.Itoa(insights.Summary.HighRiskStudents)},
		{Label: "Average Grade", Value: fmt.Sprintf("%.1f", insights.Cohort.Metrics.AverageGrade)},
		{Label: "Median Grade", Value: fmt.Sprintf("%.1f", insights.Cohort.Metrics.MedianGrade)},
	}

	headers := []string{"Student", "Risk Level", "Risk Score", "Grade Trend", "Top Risk Factors", "Interventions", "Alerts"}
	rows := make([]map[string]string, 0, len(insights.Students))
	for _, student := range insights.Students {
		rows = append(rows, map[string]string{
			"Student":          student.StudentID,
			"Risk Level":       string(student.Assessment.RiskLevel),
			"Risk Score":       strconv.Itoa(student.Assessment.RiskScore),
			"Grade Trend":      string(student.Trend.Grades.Direction),
			"Top Risk Factors": joinFactors(student.Assessment.RiskFactors),
			"Interventions":    strconv.Itoa(len(student.Interventions)),
			"Alerts":           strconv.Itoa(len(student.Alerts)),
		})
	}

	return export.Report{
		Title:   "Course Performance Insights",
		Summary: summary,
		Table:   export.Table{Headers: headers, Rows: rows},
	}
}

func joinFactors(factors []models.RiskFactor) string {
	if len(factors) == 0 {
		return "none"
	}
	limit := len(factors)
	if limit > 3 {
		limit = 3
	}
	tags := make([]string, 0, limit)
	for _, factor := range factors[:limit] {
		tags = append(tags, string(factor.Factor))
	}
	return strings.Join(tags, "; ")
}
