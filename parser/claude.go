package parser

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/joeychilson/chatimport/fetcher"
	"github.com/joeychilson/chatimport/provider"
	"github.com/joeychilson/chatimport/transcript"
)

// claudeParser handles claude.ai share pages.
type claudeParser struct {
	baseParser
}

func newClaudeParser(f *fetcher.Fetcher) *claudeParser {
	return &claudeParser{baseParser{provider: provider.Claude, fetcher: f}}
}

func (p *claudeParser) Parse(document, url string) (*transcript.Transcript, error) {
	doc, err := loadDocument(document)
	if err != nil {
		return nil, err
	}

	messages := p.extractEmbedded(doc)

	if len(messages) == 0 {
		messages = extractDOM(doc, claudeDOMRules, 1)
	}

	messages = transcript.FilterEmpty(messages)

	return transcript.New(
		p.provider.String(),
		extractTitle(doc, p.provider, messages),
		messages,
		url,
	), nil
}

// extractEmbedded looks for a messages array where entries carry a role and
// a content that is either a string or an object with a text field. Claude
// labels the human speaker "human".
func (p *claudeParser) extractEmbedded(doc *goquery.Document) []transcript.Message {
	for _, script := range scriptContents(doc, "messages", "conversation") {
		data, ok := jsonMessagesBlob(script)
		if !ok {
			continue
		}

		rawMessages, ok := data["messages"].([]any)
		if !ok {
			continue
		}

		var messages []transcript.Message
		for _, raw := range rawMessages {
			msg, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			role, _ := msg["role"].(string)
			content := claudeContentText(msg["content"])
			if role == "" || content == "" {
				continue
			}
			messages = append(messages, transcript.Message{
				Role:    normalizeRole(role),
				Content: content,
				Order:   len(messages),
			})
		}

		if len(messages) > 0 {
			return messages
		}
	}
	return nil
}

// claudeContentText flattens a message content value: plain strings pass
// through, objects prefer their text field, anything else is re-serialized.
func claudeContentText(content any) string {
	switch val := content.(type) {
	case string:
		return val
	case map[string]any:
		if text, ok := val["text"].(string); ok {
			return text
		}
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	default:
		return ""
	}
}

// claudeDOMRules covers the test-id and class patterns observed on Claude
// shared conversation pages.
var claudeDOMRules = []domRule{
	{
		name:      "message-containers",
		container: `[data-testid*="message"], [class*="ConversationMessage"], [class*="human-turn"], [class*="assistant-turn"]`,
		content:   `[class*="prose"], [class*="markdown"]`,
		role: func(s *goquery.Selection) transcript.Role {
			testID, _ := s.Attr("data-testid")
			marker := strings.ToLower(testID) + " " + classAttr(s)
			if strings.Contains(marker, "human") || strings.Contains(marker, "user") {
				return transcript.RoleUser
			}
			return transcript.RoleAssistant
		},
	},
}
