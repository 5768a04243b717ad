package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() Report {
	return Report{
		Title: "Course Performance Insights",
		Summary: []SummaryLine{
			{Label: "Course", Value: "course-1"},
			{Label: "Students", Value: "2"},
		},
		Table: Table{
			Headers: []string{"Student", "Risk Level"},
			Rows: []map[string]string{
				{"Student": "student-1", "Risk Level": "low"},
				{"Student": "student-2", "Risk Level": "critical"},
			},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	payload, err := NewCSVExporter().Render(sampleReport())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "Course,course-1", strings.TrimSpace(lines[0]))
	assert.Equal(t, "Student,Risk Level", strings.TrimSpace(lines[3]))
	assert.Equal(t, "student-2,critical", strings.TrimSpace(lines[5]))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Report{})
	assert.Error(t, err)
}

func TestCSVExporterNoSummary(t *testing.T) {
	report := sampleReport()
	report.Summary = nil

	payload, err := NewCSVExporter().Render(report)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Student,Risk Level", strings.TrimSpace(lines[0]))
}

func TestPDFExporterRender(t *testing.T) {
	payload, err := NewPDFExporter().Render(sampleReport())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestPDFExporterRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Report{Title: "empty"})
	assert.Error(t, err)
}
