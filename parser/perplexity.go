package parser

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/joeychilson/chatimport/fetcher"
	"github.com/joeychilson/chatimport/provider"
	"github.com/joeychilson/chatimport/transcript"
)

// perplexityParser handles perplexity.ai search/thread share pages.
type perplexityParser struct {
	baseParser
}

func newPerplexityParser(f *fetcher.Fetcher) *perplexityParser {
	return &perplexityParser{baseParser{provider: provider.Perplexity, fetcher: f}}
}

func (p *perplexityParser) Parse(document, url string) (*transcript.Transcript, error) {
	doc, err := loadDocument(document)
	if err != nil {
		return nil, err
	}

	messages := p.extractNextData(doc)

	if len(messages) == 0 {
		messages = p.extractEmbedded(doc)
	}

	if len(messages) == 0 {
		messages = p.extractQueryAnswerDOM(doc)
	}

	messages = transcript.FilterEmpty(messages)

	return transcript.New(
		p.provider.String(),
		extractTitle(doc, p.provider, messages),
		messages,
		url,
	), nil
}

// extractNextData probes the Next.js __NEXT_DATA__ payload with gjson paths.
// Perplexity threads surface as query_str/answer pairs under pageProps.
func (p *perplexityParser) extractNextData(doc *goquery.Document) []transcript.Message {
	raw := doc.Find("script#__NEXT_DATA__").First().Text()
	if raw == "" || !gjson.Valid(raw) {
		return nil
	}

	entries := gjson.Get(raw, "props.pageProps.thread.entries")
	if !entries.IsArray() {
		entries = gjson.Get(raw, "props.pageProps.entries")
	}
	if !entries.IsArray() {
		return nil
	}

	var messages []transcript.Message
	entries.ForEach(func(_, entry gjson.Result) bool {
		query := entry.Get("query_str").String()
		if query == "" {
			query = entry.Get("query").String()
		}
		answer := entry.Get("answer").String()

		if query != "" {
			messages = append(messages, transcript.Message{
				Role:    transcript.RoleUser,
				Content: query,
				Order:   len(messages),
			})
		}
		if answer != "" {
			messages = append(messages, transcript.Message{
				Role:    transcript.RoleAssistant,
				Content: answer,
				Order:   len(messages),
			})
		}
		return true
	})

	return messages
}

// extractEmbedded decodes every application/json script and walks the values
// for query/answer pairs and role/content objects.
func (p *perplexityParser) extractEmbedded(doc *goquery.Document) []transcript.Message {
	var messages []transcript.Message

	doc.Find(`script[type="application/json"]`).Each(func(_ int, s *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return
		}
		walkJSON(data, func(obj map[string]any) bool {
			if query, ok := obj["query"].(string); ok && strings.TrimSpace(query) != "" {
				messages = append(messages, transcript.Message{
					Role:    transcript.RoleUser,
					Content: query,
					Order:   len(messages),
				})
			}
			if answer, ok := obj["answer"].(string); ok && strings.TrimSpace(answer) != "" {
				messages = append(messages, transcript.Message{
					Role:    transcript.RoleAssistant,
					Content: answer,
					Order:   len(messages),
				})
			}
			if content, ok := obj["content"].(string); ok {
				if role, ok := obj["role"].(string); ok && strings.TrimSpace(content) != "" {
					messages = append(messages, transcript.Message{
						Role:    normalizeRole(role),
						Content: content,
						Order:   len(messages),
					})
				}
			}
			return true
		})
	})

	return messages
}

// extractQueryAnswerDOM interleaves query-like and answer-like containers in
// document order, preserving the question/answer rhythm of a thread.
func (p *perplexityParser) extractQueryAnswerDOM(doc *goquery.Document) []transcript.Message {
	queries := doc.Find(`[class*="query"], [class*="question"]`)
	answers := doc.Find(`[class*="answer"], [class*="response"]`)

	var messages []transcript.Message
	count := max(queries.Length(), answers.Length())
	for i := range count {
		if i < queries.Length() {
			if content := strings.TrimSpace(queries.Eq(i).Text()); content != "" {
				messages = append(messages, transcript.Message{
					Role:    transcript.RoleUser,
					Content: content,
					Order:   len(messages),
				})
			}
		}
		if i < answers.Length() {
			if content := selectionMarkdown(answers.Eq(i)); content != "" {
				messages = append(messages, transcript.Message{
					Role:    transcript.RoleAssistant,
					Content: content,
					Order:   len(messages),
				})
			}
		}
	}

	return messages
}
