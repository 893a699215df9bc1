package emails

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "a &amp;&lt;b&gt; &quot;c&quot;", EscapeHTML(`a &<b> "c"`))
	assert.Equal(t, "plain", EscapeHTML("plain"))
}

func TestSend_NoopWithoutAPIKey(t *testing.T) {
	c := &BrevoClient{}
	assert.NoError(t, c.SendCertificate(context.Background(), "a@b.org", "Ana", "f.pdf", "Course"))
	assert.NoError(t, c.SendNewAccount(context.Background(), "a@b.org", "ana"))
}
