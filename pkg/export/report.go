package export

// SummaryLine is a labelled headline value shown above the report table.
type SummaryLine struct {
	Label string
	Value string
}

// Table defines tabular report content.
type Table struct {
	Headers []string
	Rows    []map[string]string
}

// Report is a renderable course insight report.
type Report struct {
	Title   string
	Summary []SummaryLine
	Table   Table
}
