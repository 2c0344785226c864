package export

import (
	"bytes"
	"fmt"
	"html/template"
)

// HTMLSection is one titled block of an HTML report with its own table.
type HTMLSection struct {
	Heading string
	Meta    string
	Accent  string
	Table   Dataset
}

// HTMLReport defines a printable report page: a header, a summary list
// and a sequence of detail sections.
type HTMLReport struct {
	Title    string
	Subtitle string
	Summary  []string
	Sections []HTMLSection
	Footer   string
}

// HTMLExporter renders reports into a standalone HTML page.
type HTMLExporter struct {
	tmpl *template.Template
}

// NewHTMLExporter builds an HTML exporter with the embedded template.
func NewHTMLExporter() *HTMLExporter {
	return &HTMLExporter{tmpl: template.Must(template.New("report").Parse(reportTemplate))}
}

// Render produces the HTML page bytes for the report.
func (e *HTMLExporter) Render(report HTMLReport) ([]byte, error) {
	if report.Title == "" {
		return nil, fmt.Errorf("html report requires a title")
	}
	buf := &bytes.Buffer{}
	if err := e.tmpl.Execute(buf, report); err != nil {
		return nil, fmt.Errorf("render html report: %w", err)
	}
	return buf.Bytes(), nil
}

const reportTemplate = `<!DOCTYPE html>
<html lang="fr">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; }
        .header { background: #3B82F6; color: white; padding: 20px; border-radius: 8px; margin-bottom: 20px; }
        .summary { background: #F3F4F6; padding: 15px; border-radius: 8px; margin-bottom: 20px; }
        .section { border: 1px solid #E5E7EB; margin: 10px 0; padding: 15px; border-radius: 8px; }
        .accent-A { border-left: 4px solid #EF4444; }
        .accent-B { border-left: 4px solid #38BDF8; }
        .accent-C { border-left: 4px solid #F9A8D4; }
        .accent-Autres { border-left: 4px solid #10B981; }
        table { width: 100%; border-collapse: collapse; margin-top: 10px; }
        th, td { padding: 8px; text-align: left; border-bottom: 1px solid #E5E7EB; }
        th { background: #F9FAFB; }
        .footer { text-align: center; margin-top: 30px; color: #6B7280; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Title}}</h1>
        {{if .Subtitle}}<p>{{.Subtitle}}</p>{{end}}
    </div>
    {{if .Summary}}
    <div class="summary">
        <h2>R&eacute;sum&eacute; de la journ&eacute;e</h2>
        <ul>
        {{range .Summary}}<li>{{.}}</li>
        {{end}}</ul>
    </div>
    {{end}}
    {{range .Sections}}
    <div class="section accent-{{.Accent}}">
        <h3>{{.Heading}}</h3>
        {{if .Meta}}<p>{{.Meta}}</p>{{end}}
        {{if .Table.Rows}}
        <table>
            <tr>{{range .Table.Headers}}<th>{{.}}</th>{{end}}</tr>
            {{$headers := .Table.Headers}}
            {{range .Table.Rows}}{{$row := .}}<tr>{{range $headers}}<td>{{index $row .}}</td>{{end}}</tr>
            {{end}}
        </table>
        {{end}}
    </div>
    {{end}}
    {{if .Footer}}<div class="footer"><p>{{.Footer}}</p></div>{{end}}
</body>
</html>
`
