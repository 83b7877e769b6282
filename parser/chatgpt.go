package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/joeychilson/chatimport/fetcher"
	"github.com/joeychilson/chatimport/provider"
	"github.com/joeychilson/chatimport/transcript"
)

// chatgptParser handles chatgpt.com and chat.openai.com share pages.
type chatgptParser struct {
	baseParser
}

func newChatGPTParser(f *fetcher.Fetcher) *chatgptParser {
	return &chatgptParser{baseParser{provider: provider.ChatGPT, fetcher: f}}
}

func (p *chatgptParser) Parse(document, url string) (*transcript.Transcript, error) {
	doc, err := loadDocument(document)
	if err != nil {
		return nil, err
	}

	messages := p.extractEmbedded(doc)

	if len(messages) == 0 {
		messages = extractDOM(doc, chatgptDOMRules, 1)
	}

	messages = transcript.FilterEmpty(messages)

	return transcript.New(
		p.provider.String(),
		extractTitle(doc, p.provider, messages),
		messages,
		url,
	), nil
}

// extractEmbedded scans scripts for the conversation JSON ChatGPT embeds in
// its share pages: a "messages" array whose entries carry author.role and
// content.parts.
func (p *chatgptParser) extractEmbedded(doc *goquery.Document) []transcript.Message {
	for _, script := range scriptContents(doc, "conversation", "messages") {
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
			role, parts := chatgptMessageFields(msg)
			if role == "" || len(parts) == 0 {
				continue
			}
			messages = append(messages, transcript.Message{
				Role:    normalizeRole(role),
				Content: strings.Join(parts, "\n"),
				Order:   len(messages),
			})
		}

		if len(messages) > 0 {
			return messages
		}
	}
	return nil
}

// chatgptMessageFields reads author.role and content.parts from one embedded
// message object.
func chatgptMessageFields(msg map[string]any) (role string, parts []string) {
	author, ok := msg["author"].(map[string]any)
	if !ok {
		return "", nil
	}
	role, _ = author["role"].(string)

	content, ok := msg["content"].(map[string]any)
	if !ok {
		return role, nil
	}
	rawParts, ok := content["parts"].([]any)
	if !ok {
		return role, nil
	}

	for _, rawPart := range rawParts {
		if part, ok := rawPart.(string); ok && part != "" {
			parts = append(parts, part)
		}
	}
	return role, parts
}

// chatgptDOMRules targets the role-bearing containers ChatGPT renders when
// the page is served with markup.
var chatgptDOMRules = []domRule{
	{
		name:      "author-role-attribute",
		container: "[data-message-author-role]",
		content:   ".markdown, .prose",
		role: func(s *goquery.Selection) transcript.Role {
			role, _ := s.Attr("data-message-author-role")
			return normalizeRole(role)
		},
	},
	{
		name:      "conversation-turn-class",
		container: `[class*="conversation-turn"]`,
		content:   ".markdown, .prose",
		role:      roleFromClass,
	},
}
