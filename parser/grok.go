package parser

import (
	"encoding/json"

	"github.com/PuerkitoBio/goquery"

	"github.com/joeychilson/chatimport/fetcher"
	"github.com/joeychilson/chatimport/provider"
	"github.com/joeychilson/chatimport/transcript"
)

// grokParser handles grok.x.ai and x.com grok share pages.
type grokParser struct {
	baseParser
}

func newGrokParser(f *fetcher.Fetcher) *grokParser {
	return &grokParser{baseParser{provider: provider.Grok, fetcher: f}}
}

func (p *grokParser) Parse(document, url string) (*transcript.Transcript, error) {
	doc, err := loadDocument(document)
	if err != nil {
		return nil, err
	}

	messages := p.extractEmbedded(doc)

	if len(messages) == 0 {
		messages = extractDOM(doc, grokDOMRules, 1)
	}

	messages = transcript.FilterEmpty(messages)

	return transcript.New(
		p.provider.String(),
		extractTitle(doc, p.provider, messages),
		messages,
		url,
	), nil
}

// extractEmbedded looks for a messages array with plain role/content
// entries; non-string content is re-serialized rather than dropped.
func (p *grokParser) extractEmbedded(doc *goquery.Document) []transcript.Message {
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
			content := grokContentText(msg["content"])
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

func grokContentText(content any) string {
	switch val := content.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// grokDOMRules matches the chat entry containers on Grok share pages. The
// minimum length filter skips icon labels and timestamps that share the
// broad class names.
var grokDOMRules = []domRule{
	{
		name:      "chat-entries",
		container: `[class*="message"], [class*="turn"], [class*="chat-entry"]`,
		content:   `[class*="content"], [class*="text"]`,
		minChars:  10,
		role: func(s *goquery.Selection) transcript.Role {
			return roleFromClass(s)
		},
	},
}
