package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/joeychilson/chatimport/capture"
	"github.com/joeychilson/chatimport/client"
	"github.com/joeychilson/chatimport/fetcher"
	"github.com/joeychilson/chatimport/manual"
	"github.com/joeychilson/chatimport/parser"
	"github.com/joeychilson/chatimport/provider"
	"github.com/joeychilson/chatimport/transcript"
	urlutil "github.com/joeychilson/chatimport/url"
)

// previewMessageCount is how many leading messages the preview includes.
const previewMessageCount = 5

// ImportURLRequest is the body of POST /v1/import/url.
type ImportURLRequest struct {
	URL string `json:"url"`
}

// ImportManualRequest is the body of POST /v1/import/manual.
type ImportManualRequest struct {
	Text     string `json:"text"`
	Title    string `json:"title,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// ImportCaptureRequest is the body of POST /v1/import/capture.
type ImportCaptureRequest struct {
	URL    string   `json:"url"`
	Frames []string `json:"frames"`
	Model  string   `json:"model,omitempty"`
}

// ImportResponse is the preview-shaped response for every import path. On
// failure, Error describes the problem and RequiresManualPaste tells the
// caller whether switching to manual paste would help.
type ImportResponse struct {
	Success             bool                   `json:"success"`
	Provider            string                 `json:"provider"`
	Title               string                 `json:"title"`
	MessageCount        int                    `json:"message_count"`
	PreviewMessages     []transcript.Message   `json:"preview_messages"`
	Transcript          *transcript.Transcript `json:"transcript,omitempty"`
	Error               string                 `json:"error,omitempty"`
	RequiresManualPaste bool                   `json:"requires_manual_paste,omitempty"`
}

// ErrorResponse represents a request-level error.
type ErrorResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
}

// handleImportURL handles POST /v1/import/url.
func (s *Server) handleImportURL(w http.ResponseWriter, r *http.Request) {
	var req ImportURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	t, err := s.client.ImportURL(r.Context(), req.URL)
	if err != nil {
		s.sendImportURLError(w, req.URL, err)
		return
	}

	s.sendJSON(w, successResponse(t), http.StatusOK)
}

// sendImportURLError maps import failures onto the error taxonomy: unsafe
// URLs are request errors; fetch failures and unparseable pages come back as
// a failed preview suggesting manual paste.
func (s *Server) sendImportURLError(w http.ResponseWriter, rawURL string, err error) {
	if errors.Is(err, urlutil.ErrUnsafeURL) {
		s.sendError(w, "Invalid URL. Please provide a valid HTTPS link.", http.StatusBadRequest)
		return
	}

	detected := provider.Detect(rawURL)

	if errors.Is(err, parser.ErrNoMessages) {
		s.sendJSON(w, failedImportResponse(detected,
			"This share page likely blocks server-side reading (client-side rendered). Paste the transcript instead."),
			http.StatusOK)
		return
	}

	var fetchErr *fetcher.Error
	if errors.As(err, &fetchErr) {
		s.sendJSON(w, failedImportResponse(detected,
			"Failed to import the conversation. Paste the transcript instead."),
			http.StatusOK)
		return
	}

	s.logger.Error("import failed", "url", rawURL, "error", err)
	s.sendJSON(w, failedImportResponse(detected,
		"Failed to import the conversation. Paste the transcript instead."),
		http.StatusOK)
}

// handleImportManual handles POST /v1/import/manual.
func (s *Server) handleImportManual(w http.ResponseWriter, r *http.Request) {
	var req ImportManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	t, err := s.client.ImportManual(req.Text, req.Title, req.Provider)
	if err != nil {
		if errors.Is(err, manual.ErrNoContent) {
			s.sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Error("manual import failed", "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.sendJSON(w, successResponse(t), http.StatusOK)
}

// handleImportCapture handles POST /v1/import/capture.
func (s *Server) handleImportCapture(w http.ResponseWriter, r *http.Request) {
	var req ImportCaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	t, err := s.client.ImportCapture(r.Context(), capture.Request{
		URL:    req.URL,
		Frames: req.Frames,
		Model:  req.Model,
	})
	if err != nil {
		switch {
		case errors.Is(err, capture.ErrBadFrames):
			s.sendError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, capture.ErrSchema), errors.Is(err, capture.ErrEmptyCapture):
			s.sendError(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.Is(err, client.ErrNoExtractor):
			s.sendError(w, "Capture import is not configured", http.StatusServiceUnavailable)
		default:
			s.logger.Error("capture import failed", "error", err)
			s.sendError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	s.sendJSON(w, successResponse(t), http.StatusOK)
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

func successResponse(t *transcript.Transcript) ImportResponse {
	preview := t.Messages
	if len(preview) > previewMessageCount {
		preview = preview[:previewMessageCount]
	}
	return ImportResponse{
		Success:         true,
		Provider:        t.Provider,
		Title:           t.Title,
		MessageCount:    len(t.Messages),
		PreviewMessages: preview,
		Transcript:      t,
	}
}

func failedImportResponse(p provider.Provider, message string) ImportResponse {
	return ImportResponse{
		Success:             false,
		Provider:            p.String(),
		PreviewMessages:     []transcript.Message{},
		Error:               message,
		RequiresManualPaste: true,
	}
}

func (s *Server) sendJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	s.sendJSON(w, ErrorResponse{
		Error:      message,
		StatusCode: statusCode,
	}, statusCode)
}
