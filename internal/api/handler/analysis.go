package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/foodlens/internal/fetcher"
	"github.com/timmy/foodlens/internal/service"
)

const uploadSuggestion = "Try uploading the image directly instead, or use a different image URL"

// AnalysisRunner is the pipeline surface the handler depends on.
type AnalysisRunner interface {
	AnalyzeUpload(ctx context.Context, data []byte, filename string) *service.Result
	AnalyzeURL(ctx context.Context, rawURL string) (*service.Result, error)
}

// AnalysisHandler handles the two analysis entry points.
type AnalysisHandler struct {
	pipeline AnalysisRunner
	maxBytes int64
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(pipeline AnalysisRunner, maxBytes int64) *AnalysisHandler {
	if maxBytes <= 0 {
		maxBytes = fetcher.DefaultMaxBytes
	}
	return &AnalysisHandler{pipeline: pipeline, maxBytes: maxBytes}
}

// Upload handles POST /upload (multipart form, field "image").
func (h *AnalysisHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided"})
		return
	}
	defer file.Close()

	// Read one byte past the cap so oversize files are detected without
	// buffering the whole payload.
	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to process image",
			"details": err.Error(),
		})
		return
	}
	if int64(len(data)) > h.maxBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image too large (max 10MB)"})
		return
	}

	result := h.pipeline.AnalyzeUpload(c.Request.Context(), data, header.Filename)
	c.JSON(http.StatusOK, result)
}

type analyzeURLRequest struct {
	ImageURL string `json:"imageUrl"`
}

// AnalyzeURL handles POST /analyze-url.
func (h *AnalysisHandler) AnalyzeURL(c *gin.Context) {
	var req analyzeURLRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ImageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image URL provided"})
		return
	}

	result, err := h.pipeline.AnalyzeURL(c.Request.Context(), req.ImageURL)
	if err != nil {
		h.writeFetchError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// writeFetchError maps fetch-stage failures to 400 responses with a
// human-actionable body; anything unexpected becomes a 500.
func (h *AnalysisHandler) writeFetchError(c *gin.Context, err error) {
	var fetchErr *fetcher.FetchError

	switch {
	case errors.Is(err, fetcher.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL format"})
	case errors.Is(err, fetcher.ErrNotAnImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL does not point to a valid image"})
	case errors.Is(err, fetcher.ErrPayloadTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image too large (max 10MB)"})
	case errors.As(err, &fetchErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      fetchErr.Message,
			"details":    fetchErr.Details,
			"suggestion": uploadSuggestion,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to analyze image from URL",
			"details": err.Error(),
		})
	}
}
