package pdf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	w := &Writer{}
	doc := &Document{
		Title:  "Completion",
		Width:  297,
		Height: 210,
		Pages: []Page{
			{Text: "Awarded to Ana Pérez", X: 20, Y: 50},
			{Text: "Second page", QR: &QRBlock{Payload: "https://example.org/verify?code=x", X: 10, Y: 10}},
		},
	}

	out, err := w.Render(doc)
	require.NoError(t, err)

	body := string(out)
	assert.True(t, strings.HasPrefix(body, "%PDF-1.4"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(body), "%%EOF"))
	assert.Contains(t, body, "/Count 2")
	assert.Contains(t, body, "Awarded to Ana P")
	assert.Contains(t, body, "verify?code=x")
}

func TestRender_EscapesText(t *testing.T) {
	w := &Writer{}
	doc := &Document{Width: 297, Height: 210, Pages: []Page{{Text: "a (b) \\c"}}}

	out, err := w.Render(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), `a \(b\) \\c`)
}

func TestRender_NoPages(t *testing.T) {
	w := &Writer{}
	_, err := w.Render(&Document{Width: 297, Height: 210})
	assert.Error(t, err)
}

func TestLandscape(t *testing.T) {
	assert.True(t, (&Document{Width: 297, Height: 210}).Landscape())
	assert.True(t, (&Document{Width: 210, Height: 210}).Landscape())
	assert.False(t, (&Document{Width: 210, Height: 297}).Landscape())
}
