// Package provider classifies shared-conversation URLs by originating platform.
package provider

import (
	"net/url"
	"strings"
)

// Provider identifies the AI chat platform a conversation came from.
type Provider string

const (
	ChatGPT    Provider = "chatgpt"
	Gemini     Provider = "gemini"
	Claude     Provider = "claude"
	Perplexity Provider = "perplexity"
	Grok       Provider = "grok"
	Unknown    Provider = "unknown"
)

// String returns the provider tag.
func (p Provider) String() string {
	return string(p)
}

// IsValid reports whether p is one of the known provider tags.
func (p Provider) IsValid() bool {
	switch p {
	case ChatGPT, Gemini, Claude, Perplexity, Grok, Unknown:
		return true
	}
	return false
}

// FromTag normalizes a caller-supplied provider tag. Unrecognized or
// empty tags map to Unknown.
func FromTag(tag string) Provider {
	p := Provider(strings.ToLower(strings.TrimSpace(tag)))
	if !p.IsValid() {
		return Unknown
	}
	return p
}

// DisplayName returns the human-readable platform name.
func (p Provider) DisplayName() string {
	switch p {
	case ChatGPT:
		return "ChatGPT"
	case Gemini:
		return "Gemini"
	case Claude:
		return "Claude"
	case Perplexity:
		return "Perplexity"
	case Grok:
		return "Grok"
	default:
		return "Unknown"
	}
}

// hostRule maps a hostname substring (and optional path substring) to a provider.
type hostRule struct {
	host     string
	pathPart string
	provider Provider
}

// Hosts match exactly or as a dot-bounded suffix, so www.chatgpt.com counts
// for chatgpt.com but netflix.com never counts for x.com.
var hostRules = []hostRule{
	{host: "chat.openai.com", provider: ChatGPT},
	{host: "chatgpt.com", provider: ChatGPT},
	{host: "gemini.google.com", provider: Gemini},
	{host: "aistudio.google.com", provider: Gemini},
	{host: "bard.google.com", provider: Gemini},
	{host: "claude.ai", provider: Claude},
	{host: "anthropic.com", provider: Claude},
	{host: "perplexity.ai", provider: Perplexity},
	{host: "grok.x.ai", provider: Grok},
	{host: "x.com", pathPart: "grok", provider: Grok},
}

// Detect maps a URL to a provider by hostname. Malformed URLs and
// unrecognized hostnames both yield Unknown; Detect never fails.
func Detect(rawURL string) Provider {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return Unknown
	}

	hostname := strings.ToLower(parsed.Hostname())
	path := strings.ToLower(parsed.Path)

	for _, rule := range hostRules {
		if !matchHost(hostname, rule.host) {
			continue
		}
		if rule.pathPart != "" && !strings.Contains(path, rule.pathPart) {
			continue
		}
		return rule.provider
	}

	return Unknown
}

func matchHost(hostname, ruleHost string) bool {
	return hostname == ruleHost || strings.HasSuffix(hostname, "."+ruleHost)
}
