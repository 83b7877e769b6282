package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/joeychilson/chatimport/fetcher"
	"github.com/joeychilson/chatimport/provider"
	"github.com/joeychilson/chatimport/transcript"
)

// geminiParser handles gemini.google.com and aistudio.google.com share pages.
type geminiParser struct {
	baseParser
}

func newGeminiParser(f *fetcher.Fetcher) *geminiParser {
	return &geminiParser{baseParser{provider: provider.Gemini, fetcher: f}}
}

// afInitDataRegex matches the AF_initDataCallback({...}); payloads Google
// pages embed their data in.
var afInitDataRegex = regexp.MustCompile(`(?s)AF_initDataCallback\((\{.*?\})\);`)

func (p *geminiParser) Parse(document, url string) (*transcript.Transcript, error) {
	doc, err := loadDocument(document)
	if err != nil {
		return nil, err
	}

	messages := p.extractEmbedded(doc)

	if len(messages) == 0 {
		messages = extractDOM(doc, geminiDOMRules, 1)
	}

	messages = transcript.FilterEmpty(messages)

	return transcript.New(
		p.provider.String(),
		extractTitle(doc, p.provider, messages),
		messages,
		url,
	), nil
}

// extractEmbedded unwraps AF_initDataCallback payloads and walks each parsed
// value for role/content pairs. Payloads are usually JavaScript object
// literals rather than strict JSON; decode failures just move on to the next
// candidate.
func (p *geminiParser) extractEmbedded(doc *goquery.Document) []transcript.Message {
	var messages []transcript.Message

	for _, script := range scriptContents(doc, "AF_initDataCallback", "conversation") {
		for _, match := range afInitDataRegex.FindAllStringSubmatch(script, -1) {
			var data any
			if err := json.Unmarshal([]byte(match[1]), &data); err != nil {
				continue
			}
			walkJSON(data, func(obj map[string]any) bool {
				content, ok := obj["content"].(string)
				if !ok || strings.TrimSpace(content) == "" {
					return true
				}
				role, _ := obj["role"].(string)
				if role == "" {
					role, _ = obj["author"].(string)
				}
				messages = append(messages, transcript.Message{
					Role:    normalizeRole(role),
					Content: content,
					Order:   len(messages),
				})
				return true
			})
		}
	}

	return messages
}

// geminiDOMRules matches the turn containers Gemini renders; the user side
// is marked with user classes on the container or a descendant.
var geminiDOMRules = []domRule{
	{
		name:      "conversation-turns",
		container: `[class*="conversation-turn"], [class*="message-row"]`,
		content:   `[class*="text-content"], [class*="message-content"]`,
		role: func(s *goquery.Selection) transcript.Role {
			if strings.Contains(classAttr(s), "user") || s.Find(`[class*="user"]`).Length() > 0 {
				return transcript.RoleUser
			}
			return transcript.RoleAssistant
		},
	},
}
