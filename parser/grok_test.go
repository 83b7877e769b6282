package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeychilson/chatimport/transcript"
)

func TestGrokParseEmbedded(t *testing.T) {
	page := `<html><head><title>Grok</title></head><body>
	<script>{"messages":[
		{"role":"user","content":"roast my code"},
		{"role":"assistant","content":"gladly, where do I start"}
	]}</script>
	</body></html>`

	p := newGrokParser(nil)
	got, err := p.Parse(page, "https://grok.x.ai/share/abc")
	require.NoError(t, err)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, transcript.RoleUser, got.Messages[0].Role)
	assert.Equal(t, "roast my code", got.Messages[0].Content)
	assert.Equal(t, transcript.RoleAssistant, got.Messages[1].Role)
	assert.Equal(t, "grok", got.Provider)
}

func TestGrokParseEmbeddedStructuredContent(t *testing.T) {
	page := `<html><body>
	<script>{"messages":[{"role":"assistant","content":{"parts":["structured"]}}]}</script>
	</body></html>`

	p := newGrokParser(nil)
	got, err := p.Parse(page, "https://grok.x.ai/share/abc")
	require.NoError(t, err)

	require.Len(t, got.Messages, 1)
	assert.Contains(t, got.Messages[0].Content, "structured", "non-string content is serialized, not dropped")
}

func TestGrokParseDOMFallback(t *testing.T) {
	page := `<html><body>
	<div class="chat-entry user-entry"><div class="entry-content">this is my long question</div></div>
	<div class="chat-entry"><div class="entry-content">this is a long enough answer</div></div>
	<div class="chat-entry"><div class="entry-content">short</div></div>
	</body></html>`

	p := newGrokParser(nil)
	got, err := p.Parse(page, "https://grok.x.ai/share/abc")
	require.NoError(t, err)

	require.Len(t, got.Messages, 2, "entries at or under the length floor are skipped")
	assert.Equal(t, transcript.RoleUser, got.Messages[0].Role)
	assert.Equal(t, transcript.RoleAssistant, got.Messages[1].Role)
}
