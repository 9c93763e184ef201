// Package docwriter renders plain assistant output into a formatted Word
// document: memo headers grouped and bolded, subject lines centered,
// signature blocks right-aligned.
package docwriter

import (
	"strings"
)

const (
	fontName = "Times New Roman"
	// Half-points, so 28 is a 14pt font.
	fontSize = "28"
)

type run struct {
	text     string
	bold     bool
	brBefore bool
}

type paragraph struct {
	align string // "", "center", "right"
	runs  []run
}

// injectDate adds a "Date: <date>" line when the text has none: after the
// first To:/From: header group when one exists, otherwise as the opening
// line. Text that already carries a Date: line is returned unchanged.
func injectDate(content, date string) string {
	lines := strings.Split(content, "\n")
	for _, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "date:") {
			return content
		}
	}

	insertAfter := -1
	for i, line := range lines {
		lower := strings.ToLower(strings.TrimSpace(line))
		if strings.HasPrefix(lower, "to:") || strings.HasPrefix(lower, "from:") {
			insertAfter = i
			continue
		}
		if insertAfter >= 0 {
			break
		}
	}

	dateLine := "Date: " + date
	if insertAfter < 0 {
		return dateLine + "\n\n" + content
	}

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:insertAfter+1]...)
	out = append(out, dateLine)
	out = append(out, lines[insertAfter+1:]...)
	return strings.Join(out, "\n")
}

// layout applies the formatting rules line by line. Consecutive To:/From:/
// Date: lines merge into one header paragraph separated by line breaks.
func layout(content string) []paragraph {
	var paras []paragraph
	var header *paragraph

	flush := func() {
		if header != nil {
			paras = append(paras, *header)
			header = nil
		}
	}

	for _, line := range strings.Split(content, "\n") {
		clean := strings.TrimSpace(line)
		if clean == "" {
			flush()
			paras = append(paras, paragraph{})
			continue
		}

		lower := strings.ToLower(clean)

		// Boilerplate the model tends to echo from templates.
		if strings.Contains(lower, "memorandum") || lower == "dress code:" || lower == "wifi access:" {
			continue
		}

		switch {
		case strings.HasPrefix(lower, "to:") || strings.HasPrefix(lower, "from:") || strings.HasPrefix(lower, "date:"):
			prefix, value, _ := strings.Cut(clean, ":")
			runs := []run{
				{text: prefix + ":", bold: true},
				{text: value},
			}
			if header == nil {
				header = &paragraph{runs: runs}
			} else {
				runs[0].brBefore = true
				header.runs = append(header.runs, runs...)
			}

		case strings.HasPrefix(lower, "subject:"):
			flush()
			paras = append(paras, paragraph{
				align: "center",
				runs:  []run{{text: clean, bold: true}},
			})

		case strings.HasPrefix(lower, "sincerely") || strings.HasPrefix(lower, "[your name") || strings.HasPrefix(lower, "[company"):
			flush()
			paras = append(paras, paragraph{
				align: "right",
				runs:  []run{{text: clean}},
			})

		default:
			flush()
			p := paragraph{}
			// **segment** markers toggle bold.
			for i, part := range strings.Split(clean, "**") {
				if part == "" {
					continue
				}
				p.runs = append(p.runs, run{text: part, bold: i%2 == 1})
			}
			paras = append(paras, p)
		}
	}

	flush()
	return paras
}
