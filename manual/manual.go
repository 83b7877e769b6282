// Package manual converts free-form pasted chat text into a normalized
// transcript without any network access. It tolerates the wildly inconsistent
// formats different chat UIs produce when a conversation is copied out:
// "User:" / "Assistant:" style labels, bare role lines, and plain
// unlabelled paragraphs.
package manual

import (
	"errors"
	"regexp"
	"strings"

	"github.com/joeychilson/chatimport/provider"
	"github.com/joeychilson/chatimport/transcript"
)

// ErrNoContent is returned when pasted text yields zero messages after every
// fallback tier. The message names the expected format so the caller can show
// it to the user directly.
var ErrNoContent = errors.New(`no messages could be parsed from the pasted text; label each turn like "User: hello" and "Assistant: hi"`)

// userLabels and assistantLabels map lowercased leading labels to speaker
// roles. Label matching is the first fallback tier; entries here come from
// formats observed in real pastes (chat UIs, support transcripts, Q&A dumps).
var userLabels = map[string]struct{}{
	"user":     {},
	"you":      {},
	"human":    {},
	"me":       {},
	"customer": {},
	"q":        {},
	"question": {},
	"prompt":   {},
}

var assistantLabels = map[string]struct{}{
	"assistant":  {},
	"ai":         {},
	"model":      {},
	"bot":        {},
	"claude":     {},
	"chatgpt":    {},
	"gemini":     {},
	"perplexity": {},
	"grok":       {},
	"bard":       {},
	"copilot":    {},
	"a":          {},
	"answer":     {},
	"response":   {},
}

// labelLineRegex matches a leading role label with an explicit separator:
// a colon, or a dash followed by whitespace (so hyphenated words like
// "Human-computer" are not read as labels). The optional "said" covers
// ChatGPT's copy format ("You said:", "ChatGPT said:"). Requiring a
// separator keeps single-letter labels like "A" and "Q" from matching
// ordinary prose.
var labelLineRegex = regexp.MustCompile(`^([A-Za-z]{1,12})(?:\s+said)?\s*(?:[:：]|[-–—]\s)\s*(.*)$`)

// noiseLineRegexes match whole lines of chat-UI chrome that commonly rides
// along when a transcript is copied out of a browser.
var noiseLineRegexes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^skip to content$`),
	regexp.MustCompile(`(?i)^copy(?: code)?$`),
	regexp.MustCompile(`(?i)^regenerate(?: response)?$`),
	regexp.MustCompile(`(?i)^share$`),
	regexp.MustCompile(`(?i)^[\w .-]{0,40} can make mistakes\.?.*$`),
	regexp.MustCompile(`(?i)^this conversation was generated with [\w .-]+$`),
}

// Parse converts pasted text into a transcript for the given provider. The
// provider is caller-declared (usually Unknown); the title falls back to an
// excerpt of the first user message when the caller supplies none.
func Parse(text, title string, p provider.Provider) (*transcript.Transcript, error) {
	messages, err := ParseMessages(text)
	if err != nil {
		return nil, err
	}
	return transcript.New(p.String(), transcript.ManualTitle(title, messages), messages, ""), nil
}

// ParseMessages runs the pasted text through three tiers: explicit role
// labels, bare role-label lines, then blank-line paragraph alternation when
// no labels were found at all. It returns ErrNoContent only when every tier
// produces nothing.
func ParseMessages(text string) ([]transcript.Message, error) {
	lines := cleanLines(text)

	messages, sawLabel := scanLabelled(lines)
	if !sawLabel {
		messages = alternateParagraphs(lines)
	}
	if len(messages) == 0 {
		return nil, ErrNoContent
	}
	return messages, nil
}

// cleanLines normalizes line endings, strips trailing whitespace, and drops
// known UI-noise lines.
func cleanLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t")
		if isNoiseLine(strings.TrimSpace(line)) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func isNoiseLine(line string) bool {
	if line == "" {
		return false
	}
	for _, re := range noiseLineRegexes {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// scanLabelled is the line state machine: labelled lines switch the current
// role and flush the buffer, unlabelled lines accumulate under the current
// role, and text before the first label is assumed to be the user speaking.
// The second return reports whether any role label was seen; when it is
// false the caller discards the result and falls back to paragraph
// alternation.
func scanLabelled(lines []string) ([]transcript.Message, bool) {
	var (
		messages []transcript.Message
		role     transcript.Role
		buffer   []string
		sawLabel bool
	)

	flush := func() {
		content := strings.TrimSpace(strings.Join(buffer, "\n"))
		buffer = buffer[:0]
		if role == "" || content == "" {
			return
		}
		messages = append(messages, transcript.Message{
			Role:    role,
			Content: content,
			Order:   len(messages),
		})
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if next, rest, ok := matchRoleLabel(trimmed); ok {
			flush()
			role = next
			sawLabel = true
			if rest != "" {
				buffer = append(buffer, rest)
			}
			continue
		}

		if role != "" {
			buffer = append(buffer, line)
			continue
		}
		if trimmed != "" {
			role = transcript.RoleUser
			buffer = append(buffer, line)
		}
	}
	flush()

	return messages, sawLabel
}

// matchRoleLabel recognizes "Label: rest" lines and bare role-label lines.
func matchRoleLabel(line string) (transcript.Role, string, bool) {
	if role, ok := lookupLabel(line); ok {
		return role, "", true
	}

	match := labelLineRegex.FindStringSubmatch(line)
	if match == nil {
		return "", "", false
	}
	role, ok := lookupLabel(match[1])
	if !ok {
		return "", "", false
	}
	return role, strings.TrimSpace(match[2]), true
}

func lookupLabel(label string) (transcript.Role, bool) {
	label = strings.ToLower(label)
	if _, ok := userLabels[label]; ok {
		return transcript.RoleUser, true
	}
	if _, ok := assistantLabels[label]; ok {
		return transcript.RoleAssistant, true
	}
	return "", false
}

// alternateParagraphs splits unlabelled text on blank-line runs and assigns
// roles alternately, the first paragraph to the user. A single paragraph
// therefore becomes one user message holding the whole paste.
func alternateParagraphs(lines []string) []transcript.Message {
	var (
		messages  []transcript.Message
		paragraph []string
	)

	flush := func() {
		content := strings.TrimSpace(strings.Join(paragraph, "\n"))
		paragraph = paragraph[:0]
		if content == "" {
			return
		}
		role := transcript.RoleAssistant
		if len(messages)%2 == 0 {
			role = transcript.RoleUser
		}
		messages = append(messages, transcript.Message{
			Role:    role,
			Content: content,
			Order:   len(messages),
		})
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		paragraph = append(paragraph, line)
	}
	flush()

	return messages
}
