package core

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/cockroachdb/errors"
)

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: "Courier New", monospace; font-size: 12px; width: {{.Width}}ch; margin: 0 auto; }
.center { text-align: center; }
.bold { font-weight: bold; }
.large { font-size: 1.6em; }
.inverted { background: #000; color: #fff; padding: 2px 0; }
.row { display: flex; justify-content: space-between; }
hr { border: 0; border-top: 1px dashed #000; }
.cut { page-break-after: always; }
@media print { @page { margin: 0; } }
</style>
</head>
<body>
{{- range .Lines}}
{{- if eq .Kind "rule"}}
<hr>
{{- else if eq .Kind "blank"}}
<br>
{{- else if eq .Kind "cut"}}
<div class="cut"></div>
{{- else if eq .Kind "row"}}
<div class="row {{.Class}}"><span>{{.Text}}</span><span>{{.Right}}</span></div>
{{- else}}
<div class="{{.Class}}">{{.Text}}</div>
{{- end}}
{{- end}}
</body>
</html>
`))

type htmlLine struct {
	Kind  string
	Class string
	Text  string
	Right string
}

type htmlReceipt struct {
	Title string
	Width int
	Lines []htmlLine
}

type HTMLGenerator struct{}

func NewHTMLGenerator() *HTMLGenerator {
	return &HTMLGenerator{}
}

// Generate renders a complete document the browser can open in a new window
// and hand to its print dialog.
func (g *HTMLGenerator) Generate(layout *receiptLayout, cfg PrinterConfig) ([]byte, error) {
	cfg = withDefaults(cfg)
	doc := htmlReceipt{Title: layout.title, Width: cfg.Width}
	for _, line := range layout.lines {
		doc.Lines = append(doc.Lines, toHTMLLine(line))
	}

	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, doc); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "execute receipt template"), ErrRender)
	}
	return buf.Bytes(), nil
}

func toHTMLLine(line receiptLine) htmlLine {
	var kind string
	switch line.kind {
	case lineRow:
		kind = "row"
	case lineRule:
		kind = "rule"
	case lineBlank:
		kind = "blank"
	case lineCut:
		kind = "cut"
	default:
		kind = "text"
	}

	var classes []string
	if line.centered {
		classes = append(classes, "center")
	}
	if line.bold {
		classes = append(classes, "bold")
	}
	if line.large {
		classes = append(classes, "large")
	}
	if line.inverted {
		classes = append(classes, "inverted")
	}
	return htmlLine{Kind: kind, Class: strings.Join(classes, " "), Text: line.text, Right: line.right}
}
