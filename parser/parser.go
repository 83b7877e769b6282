// Package parser extracts normalized transcripts from provider share pages.
//
// Each provider parser attempts extraction strategies in strict priority
// order: embedded structured data first, then DOM heuristics. The generic
// parser adds broad-selector, JSON-LD, and plain-text fallbacks and accepts
// any URL, so dispatch always finds a parser. Strategy-internal failures
// (malformed JSON blobs, selector misses) are swallowed; only exhaustion of
// every strategy surfaces as an error, and that happens at the dispatch
// level, not inside a parser.
package parser

import (
	"context"
	"errors"
	"fmt"

	"github.com/joeychilson/chatimport/fetcher"
	"github.com/joeychilson/chatimport/provider"
	"github.com/joeychilson/chatimport/transcript"
)

// ErrNoMessages indicates the page was fetched and parsed but no messages
// were extracted, commonly because the share page is client-side rendered.
// Callers should suggest manual paste.
var ErrNoMessages = errors.New("no messages found in the shared link")

// Parser knows how to recognize, fetch, and parse one provider's share pages.
type Parser interface {
	// Provider returns the provider this parser handles.
	Provider() provider.Provider

	// Detect reports whether this parser handles the given URL.
	Detect(url string) bool

	// Fetch retrieves the share page document.
	Fetch(ctx context.Context, url string) (string, error)

	// Parse extracts a transcript from the document. It returns a transcript
	// even when no messages were found; emptiness is checked by the caller.
	Parse(document, url string) (*transcript.Transcript, error)
}

// Registry holds the fixed, ordered parser list.
type Registry struct {
	parsers []Parser
}

// NewRegistry creates a registry with all provider parsers. The generic
// parser is last; its Detect is unconditionally true.
func NewRegistry(f *fetcher.Fetcher) *Registry {
	return &Registry{
		parsers: []Parser{
			newChatGPTParser(f),
			newGeminiParser(f),
			newClaudeParser(f),
			newPerplexityParser(f),
			newGrokParser(f),
			newGenericParser(f),
		},
	}
}

// ForURL returns the first parser whose Detect matches the URL. It never
// returns nil: the generic parser matches everything.
func (r *Registry) ForURL(url string) Parser {
	for _, p := range r.parsers {
		if p.Detect(url) {
			return p
		}
	}
	return r.parsers[len(r.parsers)-1]
}

// ImportFromURL selects a parser, fetches the page, and parses it. A
// transcript with zero messages fails with ErrNoMessages rather than being
// returned as an empty success. Fetch and parse errors propagate as-is;
// imports are single-attempt and never retried here.
func (r *Registry) ImportFromURL(ctx context.Context, url string) (*transcript.Transcript, error) {
	p := r.ForURL(url)

	document, err := p.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	t, err := p.Parse(document, url)
	if err != nil {
		return nil, err
	}

	if len(t.Messages) == 0 {
		if looksClientRendered(document) {
			return nil, fmt.Errorf("%w: %s (page appears to be client-side rendered)", ErrNoMessages, url)
		}
		return nil, fmt.Errorf("%w: %s", ErrNoMessages, url)
	}

	return t, nil
}

// baseParser carries the shared Detect and Fetch behavior.
type baseParser struct {
	provider provider.Provider
	fetcher  *fetcher.Fetcher
}

func (b *baseParser) Provider() provider.Provider {
	return b.provider
}

func (b *baseParser) Detect(url string) bool {
	return provider.Detect(url) == b.provider
}

func (b *baseParser) Fetch(ctx context.Context, url string) (string, error) {
	resp, err := b.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return string(resp.Body), nil
}
