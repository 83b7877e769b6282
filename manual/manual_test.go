package manual

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeychilson/chatimport/provider"
	"github.com/joeychilson/chatimport/transcript"
)

func TestParseMessagesLabelled(t *testing.T) {
	messages, err := ParseMessages("User: hello\nAssistant: hi there")
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, transcript.RoleUser, messages[0].Role)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, 0, messages[0].Order)

	assert.Equal(t, transcript.RoleAssistant, messages[1].Role)
	assert.Equal(t, "hi there", messages[1].Content)
	assert.Equal(t, 1, messages[1].Order)
}

func TestParseMessagesLabelSynonyms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		roles []transcript.Role
	}{
		{
			name:  "q and a",
			input: "Q: what is a goroutine?\nA: a lightweight thread managed by the runtime",
			roles: []transcript.Role{transcript.RoleUser, transcript.RoleAssistant},
		},
		{
			name:  "chatgpt copy format",
			input: "You said:\nsummarize this\nChatGPT said:\nSure, here is a summary.",
			roles: []transcript.Role{transcript.RoleUser, transcript.RoleAssistant},
		},
		{
			name:  "provider names as labels",
			input: "Human: hey\nClaude: hello!\nHuman: thanks",
			roles: []transcript.Role{transcript.RoleUser, transcript.RoleAssistant, transcript.RoleUser},
		},
		{
			name:  "case insensitive labels",
			input: "USER: one\nASSISTANT: two",
			roles: []transcript.Role{transcript.RoleUser, transcript.RoleAssistant},
		},
		{
			name:  "dash separator",
			input: "User - first question\nBot - first answer",
			roles: []transcript.Role{transcript.RoleUser, transcript.RoleAssistant},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages, err := ParseMessages(tt.input)
			require.NoError(t, err)
			require.Len(t, messages, len(tt.roles))
			for i, role := range tt.roles {
				assert.Equal(t, role, messages[i].Role, "message %d", i)
				assert.Equal(t, i, messages[i].Order, "message %d", i)
				assert.NotEmpty(t, messages[i].Content, "message %d", i)
			}
		})
	}
}

func TestParseMessagesBareLabelLines(t *testing.T) {
	input := "User\nwhat does this error mean?\nit happens on startup\nAssistant\ncheck your config file"

	messages, err := ParseMessages(input)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, transcript.RoleUser, messages[0].Role)
	assert.Equal(t, "what does this error mean?\nit happens on startup", messages[0].Content)
	assert.Equal(t, transcript.RoleAssistant, messages[1].Role)
	assert.Equal(t, "check your config file", messages[1].Content)
}

func TestParseMessagesMultilineBuffering(t *testing.T) {
	input := "User: first line\nsecond line\n\nthird line\nAssistant: reply"

	messages, err := ParseMessages(input)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first line\nsecond line\n\nthird line", messages[0].Content)
	assert.Equal(t, "reply", messages[1].Content)
}

func TestParseMessagesPreambleAssumedUser(t *testing.T) {
	input := "some context pasted first\nAssistant: and the reply"

	messages, err := ParseMessages(input)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, transcript.RoleUser, messages[0].Role)
	assert.Equal(t, "some context pasted first", messages[0].Content)
	assert.Equal(t, transcript.RoleAssistant, messages[1].Role)
}

func TestParseMessagesParagraphFallback(t *testing.T) {
	messages, err := ParseMessages("First paragraph.\n\nSecond paragraph.")
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, transcript.RoleUser, messages[0].Role)
	assert.Equal(t, "First paragraph.", messages[0].Content)
	assert.Equal(t, transcript.RoleAssistant, messages[1].Role)
	assert.Equal(t, "Second paragraph.", messages[1].Content)
}

func TestParseMessagesUnlabelledSingleParagraph(t *testing.T) {
	messages, err := ParseMessages("just one block of text\nacross two lines")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, transcript.RoleUser, messages[0].Role)
	assert.Equal(t, "just one block of text\nacross two lines", messages[0].Content)
}

func TestParseMessagesEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\n\t\n"} {
		_, err := ParseMessages(input)
		require.ErrorIs(t, err, ErrNoContent, "input %q", input)
	}
}

func TestParseMessagesNoiseOnlyInput(t *testing.T) {
	_, err := ParseMessages("Skip to content\nChatGPT can make mistakes. Check important info.")
	require.ErrorIs(t, err, ErrNoContent)
}

func TestParseMessagesDropsNoiseLines(t *testing.T) {
	input := "Skip to content\nUser: hello\nAssistant: hi\nCopy code\nstill the answer\nChatGPT can make mistakes. Check important info."

	messages, err := ParseMessages(input)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hi\nstill the answer", messages[1].Content)
	assert.NotContains(t, messages[1].Content, "mistakes")
}

func TestParseMessagesWindowsLineEndings(t *testing.T) {
	messages, err := ParseMessages("User: hello\r\nAssistant: hi")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hello", messages[0].Content)
}

func TestParseMessagesHyphenatedWordNotALabel(t *testing.T) {
	messages, err := ParseMessages("User: tell me about Human-computer interaction\nAssistant: it studies interfaces")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "tell me about Human-computer interaction", messages[0].Content)
}

func TestParseTranscript(t *testing.T) {
	got, err := Parse("User: explain generics\nAssistant: type parameters let functions work over sets of types", "", provider.Unknown)
	require.NoError(t, err)

	assert.Equal(t, "unknown", got.Provider)
	assert.Equal(t, "explain generics", got.Title)
	assert.Empty(t, got.SourceURL)
	assert.Positive(t, got.FetchedAt)
	require.NoError(t, got.Validate())
	require.Len(t, got.Messages, 2)
}

func TestParseSuppliedTitleWins(t *testing.T) {
	got, err := Parse("User: hi\nAssistant: hello", "  My Saved Chat  ", provider.ChatGPT)
	require.NoError(t, err)
	assert.Equal(t, "My Saved Chat", got.Title)
	assert.Equal(t, "chatgpt", got.Provider)
}

func TestParseTitleTruncation(t *testing.T) {
	long := strings.Repeat("a", 80)
	got, err := Parse("User: "+long+"\nAssistant: ok", "", provider.Unknown)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 60)+"...", got.Title)
}

func TestParseEmptyInput(t *testing.T) {
	_, err := Parse("", "", provider.Unknown)
	require.ErrorIs(t, err, ErrNoContent)
}
