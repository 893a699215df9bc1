// Package pdf defines the document model handed to a certificate
// renderer, plus a minimal built-in renderer. The rendering engine is
// deliberately pluggable: anything that can turn a Document into PDF
// bytes satisfies Renderer.
package pdf

// QRBlock is a machine-readable verification block placed on a page.
type QRBlock struct {
	Payload string
	X       float64
	Y       float64
}

// Page is one certificate page: an optional background image, a text
// block anchored at X/Y (millimeters from the top-left corner) and an
// optional QR block.
type Page struct {
	Background []byte
	Text       string
	X          float64
	Y          float64
	QR         *QRBlock
}

// Document is a complete certificate ready to render. Width and Height
// are in millimeters.
type Document struct {
	Title    string
	Subject  string
	Keywords string
	Width    float64
	Height   float64
	Pages    []Page
}

// Landscape reports the page orientation: landscape unless the
// configured height exceeds the width.
func (d *Document) Landscape() bool {
	return d.Height <= d.Width
}

// Renderer turns a document into PDF bytes.
type Renderer interface {
	Render(doc *Document) ([]byte, error)
}
