package parser

import (
	"encoding/json"
	"html"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/joeychilson/chatimport/provider"
	"github.com/joeychilson/chatimport/transcript"
)

// maxWalkDepth bounds recursion when walking untrusted parsed JSON, so a
// pathological document cannot blow the stack.
const maxWalkDepth = 64

// minViableMessages is the number of messages a broad-selector strategy must
// yield before its result is accepted.
const minViableMessages = 2

var (
	messagesBlobRegex = regexp.MustCompile(`(?s)\{.*"messages".*\}`)
	stripPolicy       = bluemonday.StrictPolicy()
)

func loadDocument(document string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(document))
}

// scriptContents returns the text of every script element containing at
// least one of the keywords.
func scriptContents(doc *goquery.Document, keywords ...string) []string {
	var contents []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				contents = append(contents, text)
				return
			}
		}
	})
	return contents
}

// jsonMessagesBlob locates a JSON object containing a "messages" key inside
// script text. The match is greedy; it only decodes cleanly when the script
// body is (close to) a bare JSON object, which is exactly the embedded-data
// case being targeted.
func jsonMessagesBlob(script string) (map[string]any, bool) {
	match := messagesBlobRegex.FindString(script)
	if match == "" {
		return nil, false
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(match), &data); err != nil {
		return nil, false
	}
	return data, true
}

// walkJSON visits every JSON object in a parsed value, depth-first with
// bounded recursion. The visitor may return false to stop descending below
// the visited object.
func walkJSON(v any, visit func(obj map[string]any) bool) {
	walkJSONDepth(v, 0, visit)
}

func walkJSONDepth(v any, depth int, visit func(obj map[string]any) bool) {
	if depth > maxWalkDepth {
		return
	}

	switch val := v.(type) {
	case []any:
		for _, item := range val {
			walkJSONDepth(item, depth+1, visit)
		}
	case map[string]any:
		if !visit(val) {
			return
		}
		for _, child := range val {
			walkJSONDepth(child, depth+1, visit)
		}
	}
}

// normalizeRole maps provider role strings onto the closed role enum.
// Unrecognized roles become assistant, matching observed share-page data
// where anything that is not the human speaker is model output.
func normalizeRole(role string) transcript.Role {
	switch strings.ToLower(role) {
	case "user", "human", "you", "me":
		return transcript.RoleUser
	case "system":
		return transcript.RoleSystem
	default:
		return transcript.RoleAssistant
	}
}

// domRule is one data-driven DOM extraction strategy: where messages live,
// where their content lives, and how to read the speaker role. Keeping these
// as data lets provider drift be patched without touching control flow.
type domRule struct {
	name      string
	container string
	content   string
	minChars  int
	role      func(s *goquery.Selection) transcript.Role
}

// extractDOM runs DOM rules in order and returns the first rule's messages
// once a rule yields at least minCount.
func extractDOM(doc *goquery.Document, rules []domRule, minCount int) []transcript.Message {
	for _, rule := range rules {
		var messages []transcript.Message
		doc.Find(rule.container).Each(func(_ int, s *goquery.Selection) {
			content := selectionContent(s, rule.content)
			if len(content) <= rule.minChars {
				return
			}
			messages = append(messages, transcript.Message{
				Role:    rule.role(s),
				Content: content,
				Order:   len(messages),
			})
		})
		if len(messages) >= minCount {
			return messages
		}
	}
	return nil
}

// selectionContent reads message content from a container: the inner content
// selector when it matches, the container's own text otherwise. Matched
// content is converted to markdown so code blocks and lists survive import.
func selectionContent(s *goquery.Selection, contentSelector string) string {
	if contentSelector != "" {
		if inner := s.Find(contentSelector); inner.Length() > 0 {
			if md := selectionMarkdown(inner.First()); md != "" {
				return md
			}
		}
	}
	return strings.TrimSpace(s.Text())
}

// selectionMarkdown converts a selection's inner HTML to markdown, falling
// back to plain text when conversion fails.
func selectionMarkdown(s *goquery.Selection) string {
	htmlContent, err := s.Html()
	if err != nil || strings.TrimSpace(htmlContent) == "" {
		return strings.TrimSpace(s.Text())
	}
	md, err := htmltomarkdown.ConvertString(htmlContent)
	if err != nil {
		return strings.TrimSpace(s.Text())
	}
	return strings.TrimSpace(md)
}

// classAttr returns the container's class attribute lowercased.
func classAttr(s *goquery.Selection) string {
	class, _ := s.Attr("class")
	return strings.ToLower(class)
}

// roleFromClass derives a role from user/human markers in class names.
func roleFromClass(s *goquery.Selection) transcript.Role {
	class := classAttr(s)
	if strings.Contains(class, "user") || strings.Contains(class, "human") {
		return transcript.RoleUser
	}
	return transcript.RoleAssistant
}

// stripHTMLToText strips all markup from an HTML fragment, leaving decoded
// text. Unlike a raw text walk this also drops script and style bodies.
func stripHTMLToText(htmlContent string) string {
	return strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(htmlContent)))
}

// extractTitle builds the transcript title: the page title with the
// provider's own name stripped, falling back to an excerpt of the first
// message, falling back to a provider-specific placeholder.
func extractTitle(doc *goquery.Document, p provider.Provider, messages []transcript.Message) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())

	name := p.DisplayName()
	if title != "" && name != "Unknown" {
		nameRegex := regexp.MustCompile(`(?i)[-–|]?\s*` + regexp.QuoteMeta(name) + `\s*[-–|]?`)
		title = strings.TrimSpace(nameRegex.ReplaceAllString(title, ""))
	}

	if title != "" {
		return title
	}
	if len(messages) > 0 {
		return transcript.ExcerptTitle(messages[0].Content)
	}
	return "Imported " + name + " Chat"
}
