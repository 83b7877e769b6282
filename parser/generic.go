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

// genericParser is the unconditional fallback for unrecognized hosts. Its
// strategies are broad by design and tolerate almost any page shape.
type genericParser struct {
	baseParser
}

func newGenericParser(f *fetcher.Fetcher) *genericParser {
	return &genericParser{baseParser{provider: provider.Unknown, fetcher: f}}
}

// Detect always matches; the registry keeps this parser last.
func (p *genericParser) Detect(url string) bool {
	return true
}

const (
	// maxSegmentLength caps a single message pulled out of an unstructured
	// text block.
	maxSegmentLength = 5000

	// minBlockLength is the smallest text block worth splitting.
	minBlockLength = 20
)

var roleLabelSplitRegex = regexp.MustCompile(`(?i)\b(?:User|Human|You|Me)\b[\s:]+`)

func (p *genericParser) Parse(document, url string) (*transcript.Transcript, error) {
	doc, err := loadDocument(document)
	if err != nil {
		return nil, err
	}

	messages := extractDOM(doc, genericDOMRules, minViableMessages)

	if len(messages) < minViableMessages {
		if ldMessages := p.extractJSONLD(doc); len(ldMessages) > 0 {
			messages = append(messages, ldMessages...)
		}
	}

	if len(messages) == 0 {
		messages = p.extractLargestBlock(doc)
	}

	messages = transcript.FilterEmpty(messages)

	return transcript.New(
		p.provider.String(),
		p.extractGenericTitle(doc),
		messages,
		url,
	), nil
}

// extractJSONLD pulls text or articleBody out of JSON-LD structured data as
// a single opening message.
func (p *genericParser) extractJSONLD(doc *goquery.Document) []transcript.Message {
	var messages []transcript.Message

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		if len(messages) > 0 {
			return
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return
		}
		text, _ := data["text"].(string)
		if text == "" {
			text, _ = data["articleBody"].(string)
		}
		if strings.TrimSpace(text) != "" {
			messages = append(messages, transcript.Message{
				Role:    transcript.RoleUser,
				Content: text,
				Order:   0,
			})
		}
	})

	return messages
}

// extractLargestBlock takes the page's main textual block and splits it on
// role-label keywords, alternating roles by segment parity. The text before
// the first label is whatever the page rendered first, treated as assistant
// output; segments after each label are the user's turns. A block with no
// labels at all becomes one user message.
func (p *genericParser) extractLargestBlock(doc *goquery.Document) []transcript.Message {
	block := p.largestBlockText(doc)
	if len(block) < minBlockLength {
		return nil
	}

	parts := roleLabelSplitRegex.Split(block, -1)
	if len(parts) <= 1 {
		return []transcript.Message{{
			Role:    transcript.RoleUser,
			Content: capLength(block, maxSegmentLength),
			Order:   0,
		}}
	}

	var messages []transcript.Message
	for i, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		role := transcript.RoleUser
		if i%2 == 0 {
			role = transcript.RoleAssistant
		}
		messages = append(messages, transcript.Message{
			Role:    role,
			Content: capLength(trimmed, maxSegmentLength),
			Order:   len(messages),
		})
	}

	return messages
}

// largestBlockText prefers semantic containers over the whole body. Markup
// is stripped rather than text-walked so script and style bodies drop out.
func (p *genericParser) largestBlockText(doc *goquery.Document) string {
	for _, selector := range []string{"main", "article", `[role="main"]`, "body"} {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		htmlContent, err := sel.Html()
		if err != nil {
			continue
		}
		if text := stripHTMLToText(htmlContent); text != "" {
			return text
		}
	}
	return ""
}

func (p *genericParser) extractGenericTitle(doc *goquery.Document) string {
	title, _ := doc.Find(`meta[property="og:title"]`).First().Attr("content")
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if title == "" {
		title = "Imported Chat"
	}
	return capLength(title, 100)
}

func capLength(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// genericDOMRules is the ranked ladder of broad container selectors. Each is
// tried in order; the first yielding at least two messages wins.
var genericDOMRules = []domRule{
	{
		name:      "message-class",
		container: `[class*="message"]`,
		content:   `[class*="content"], [class*="text"], .prose, .markdown`,
		minChars:  5,
		role:      genericRole,
	},
	{
		name:      "chat-class",
		container: `[class*="chat-"]`,
		content:   `[class*="content"], [class*="text"], .prose, .markdown`,
		minChars:  5,
		role:      genericRole,
	},
	{
		name:      "conversation-class",
		container: `[class*="conversation"]`,
		content:   `[class*="content"], [class*="text"], .prose, .markdown`,
		minChars:  5,
		role:      genericRole,
	},
	{
		name:      "turn-class",
		container: `[class*="turn"]`,
		content:   `[class*="content"], [class*="text"], .prose, .markdown`,
		minChars:  5,
		role:      genericRole,
	},
	{
		name:      "data-role-attribute",
		container: `[data-role]`,
		minChars:  5,
		role:      genericRole,
	},
	{
		name:      "data-message-attribute",
		container: `[data-message]`,
		minChars:  5,
		role:      genericRole,
	},
}

// genericRole reads user markers from class names and data-role attributes.
func genericRole(s *goquery.Selection) transcript.Role {
	dataRole, _ := s.Attr("data-role")
	marker := strings.ToLower(dataRole) + " " + classAttr(s)
	if strings.Contains(marker, "user") || strings.Contains(marker, "human") {
		return transcript.RoleUser
	}
	return transcript.RoleAssistant
}
