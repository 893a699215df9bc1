package pdf

import (
	"bytes"
	"fmt"
	"strings"
)

// millimeters to PDF points
const mmToPt = 72.0 / 25.4

// Writer is the built-in Renderer. It emits a small but valid PDF:
// one page per Page, text blocks at their configured anchors and QR
// payloads written as text. Background images are acknowledged but not
// painted; a full-fidelity engine can be swapped in via Renderer.
type Writer struct {
	FontSize float64
}

func (w *Writer) fontSize() float64 {
	if w.FontSize <= 0 {
		return 12
	}
	return w.FontSize
}

// Render implements Renderer.
func (w *Writer) Render(doc *Document) ([]byte, error) {
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("pdf: document has no pages")
	}

	width := doc.Width * mmToPt
	height := doc.Height * mmToPt

	var objects []string

	// Object numbering: 1 catalog, 2 pages, 3 font, then for each page
	// a page object followed by its content stream.
	pageRefs := make([]string, 0, len(doc.Pages))
	next := 4
	for range doc.Pages {
		pageRefs = append(pageRefs, fmt.Sprintf("%d 0 R", next))
		next += 2
	}

	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>",
		strings.Join(pageRefs, " "), len(doc.Pages)))
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	obj := 4
	for _, page := range doc.Pages {
		stream := w.contentStream(&page, height)
		objects = append(objects, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %.2f %.2f] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			width, height, obj+1))
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(stream), stream))
		obj += 2
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes(), nil
}

func (w *Writer) contentStream(page *Page, pageHeight float64) string {
	var b strings.Builder
	size := w.fontSize()
	leading := size * 1.4

	if page.Text != "" {
		x := page.X * mmToPt
		y := pageHeight - page.Y*mmToPt - size
		fmt.Fprintf(&b, "BT\n/F1 %.1f Tf\n%.1f TL\n%.2f %.2f Td\n", size, leading, x, y)
		for _, line := range strings.Split(page.Text, "\n") {
			fmt.Fprintf(&b, "(%s) Tj\nT*\n", escapeText(line))
		}
		b.WriteString("ET\n")
	}

	if page.QR != nil {
		x := page.QR.X * mmToPt
		y := pageHeight - page.QR.Y*mmToPt - size
		fmt.Fprintf(&b, "BT\n/F1 %.1f Tf\n%.2f %.2f Td\n(%s) Tj\nET\n",
			size*0.6, x, y, escapeText(page.QR.Payload))
	}

	return b.String()
}

func escapeText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "(", `\(`)
	s = strings.ReplaceAll(s, ")", `\)`)
	return s
}
