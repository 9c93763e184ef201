package docwriter

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// Writer creates .docx files in a fixed output directory.
type Writer struct {
	outputDir string
	now       func() time.Time
}

func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir, now: time.Now}
}

// Create formats content and writes it as a new .docx file, returning the
// path of the file it wrote. The current date is stamped into the header
// unless the text already carries a Date: line; callers pass the document
// text without one.
func (w *Writer) Create(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("document content is empty")
	}
	if err := os.MkdirAll(w.outputDir, 0o750); err != nil {
		return "", err
	}

	now := w.now()
	content = injectDate(content, now.Format("January 02, 2006"))

	path := filepath.Join(w.outputDir, fmt.Sprintf("document_%s.docx", now.Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if err := writePackage(f, content); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

func writePackage(out io.Writer, content string) error {
	zw := zip.NewWriter(out)

	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", documentXML(layout(content))},
	}
	for _, part := range parts {
		fw, err := zw.Create(part.name)
		if err != nil {
			return err
		}
		if _, err := fw.Write([]byte(part.body)); err != nil {
			return err
		}
	}
	return zw.Close()
}

func documentXML(paras []paragraph) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">`)
	b.WriteString(`<w:body>`)

	for _, p := range paras {
		b.WriteString(`<w:p>`)
		b.WriteString(`<w:pPr><w:spacing w:after="0"/>`)
		if p.align != "" {
			fmt.Fprintf(&b, `<w:jc w:val="%s"/>`, p.align)
		}
		b.WriteString(`</w:pPr>`)

		for _, r := range p.runs {
			if r.brBefore {
				b.WriteString(`<w:r><w:br/></w:r>`)
			}
			b.WriteString(`<w:r><w:rPr>`)
			fmt.Fprintf(&b, `<w:rFonts w:ascii="%s" w:hAnsi="%s"/>`, fontName, fontName)
			if r.bold {
				b.WriteString(`<w:b/>`)
			}
			fmt.Fprintf(&b, `<w:sz w:val="%s"/><w:szCs w:val="%s"/>`, fontSize, fontSize)
			b.WriteString(`</w:rPr>`)
			b.WriteString(`<w:t xml:space="preserve">`)
			xml.EscapeText(&b, []byte(r.text))
			b.WriteString(`</w:t></w:r>`)
		}
		b.WriteString(`</w:p>`)
	}

	b.WriteString(`</w:body></w:document>`)
	return b.String()
}
