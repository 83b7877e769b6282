// Package capture bridges screen-capture imports to an external multimodal
// extraction service. The OCR itself happens outside this module; capture
// only validates frame input, builds the extraction prompt, and validates
// the service's JSON response against the transcript contract.
package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/joeychilson/chatimport/config"
	"github.com/joeychilson/chatimport/logger"
	"github.com/joeychilson/chatimport/transcript"
)

// minFrameLength rejects frames too short to be a data URL or base64 image.
const minFrameLength = 10

var (
	// ErrBadFrames indicates the frame batch failed validation before any
	// extraction was attempted.
	ErrBadFrames = errors.New("invalid capture frames")

	// ErrSchema indicates the extraction service responded but its output did
	// not satisfy the transcript contract.
	ErrSchema = errors.New("capture succeeded but parsing failed; try capturing fewer or slower frames")

	// ErrEmptyCapture indicates a valid response that contained no messages.
	ErrEmptyCapture = errors.New("no messages could be extracted from the capture; start at the top and scroll slower")
)

// ExtractionRequest is the payload handed to the external service: a text
// prompt plus ordered image frames, addressed to a multimodal model.
type ExtractionRequest struct {
	Model  string
	Prompt string
	Frames []string
}

// Extractor is the external multimodal OCR collaborator. Implementations
// send the prompt and frames to a vision model and return its raw text
// output.
type Extractor interface {
	Extract(ctx context.Context, req ExtractionRequest) (string, error)
}

// Request is one capture import attempt: the share URL the frames were
// recorded from and the ordered frames themselves.
type Request struct {
	URL    string
	Frames []string
	Model  string
}

// Importer turns capture requests into validated transcripts.
type Importer struct {
	extractor Extractor
	config    config.CaptureConfig
	logger    logger.Logger
}

// New creates an Importer backed by the given extraction service.
func New(extractor Extractor, cfg config.CaptureConfig, log logger.Logger) *Importer {
	if log == nil {
		log = logger.Noop()
	}
	return &Importer{
		extractor: extractor,
		config:    cfg,
		logger:    log,
	}
}

// Import validates the frame batch, runs extraction, and validates the
// result. The returned transcript always has at least one message.
func (i *Importer) Import(ctx context.Context, req Request) (*transcript.Transcript, error) {
	if err := i.validateFrames(req.Frames); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = i.config.GetModel()
	}

	i.logger.Debug("extracting transcript from capture",
		"url", req.URL,
		"frames", len(req.Frames),
		"model", model,
	)

	raw, err := i.extractor.Extract(ctx, ExtractionRequest{
		Model:  model,
		Prompt: Prompt(req.URL),
		Frames: req.Frames,
	})
	if err != nil {
		return nil, fmt.Errorf("capture extraction failed: %w", err)
	}

	obj := extractJSONObject(raw)
	if obj == "" {
		return nil, ErrSchema
	}

	t, err := transcript.Decode([]byte(obj))
	if err != nil {
		i.logger.Warn("capture response failed transcript validation", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if len(t.Messages) == 0 {
		return nil, ErrEmptyCapture
	}
	if t.SourceURL == "" {
		t.SourceURL = req.URL
	}

	return t, nil
}

func (i *Importer) validateFrames(frames []string) error {
	maxFrames := i.config.GetMaxFrames()
	if len(frames) == 0 || len(frames) > maxFrames {
		return fmt.Errorf("%w: provide between 1 and %d image frames", ErrBadFrames, maxFrames)
	}
	for idx, frame := range frames {
		if len(frame) < minFrameLength {
			return fmt.Errorf("%w: frame %d is not image data", ErrBadFrames, idx)
		}
	}
	return nil
}

// transcriptSchema renders the transcript JSON Schema once; the prompt embeds
// it so the model is told the exact shape rather than a prose description.
var transcriptSchema = sync.OnceValue(func() string {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(&transcript.Transcript{})
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
})

// Prompt builds the extraction prompt for one capture batch.
func Prompt(sourceURL string) string {
	var b strings.Builder
	b.WriteString("You are extracting a chat transcript from screenshots of a shared AI chat page (Gemini/ChatGPT/Claude/etc).\n\n")
	b.WriteString("Return ONLY a valid JSON object matching this JSON Schema:\n\n")
	b.WriteString(transcriptSchema())
	b.WriteString("\n\nRules:\n")
	b.WriteString("- Keep message order correct (top to bottom). Use order starting at 0 and increment by 1.\n")
	b.WriteString("- Merge wrapped lines into single message content.\n")
	b.WriteString("- Remove duplicated lines caused by scrolling overlap.\n")
	b.WriteString("- If roles are unclear, best-guess; never omit content.\n")
	b.WriteString(`- provider must be one of "chatgpt", "gemini", "claude", "perplexity", "grok", "unknown".` + "\n")
	b.WriteString("- sourceUrl must be " + sourceURL + "\n")
	b.WriteString("- fetchedAt must be the current time in epoch milliseconds.\n")
	return b.String()
}

// extractJSONObject returns the substring from the first "{" to the last "}"
// so surrounding model prose or code fences are ignored.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}
