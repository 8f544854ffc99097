package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/niyamr/niyamr-backend/internal/scan"
)

// scanTimeout bounds the whole pipeline for one request, dominated
// by the reasoning-service call.
const scanTimeout = 90 * time.Second

// ScanHandler runs the document compliance pipeline: extract text
// from the uploaded file, build the audit prompt, and evaluate it
// against the reasoning service.
type ScanHandler struct {
	Extractor      scan.TextExtractor
	Audit          *scan.AuditEngine
	MaxUploadBytes int64
}

func NewScanHandler(extractor scan.TextExtractor, audit *scan.AuditEngine, maxUploadBytes int64) *ScanHandler {
	return &ScanHandler{Extractor: extractor, Audit: audit, MaxUploadBytes: maxUploadBytes}
}

// Analyze accepts a multipart upload with a `file` part and three
// rule fields, and responds with exactly 3 index-aligned rule
// evaluations. Extraction and reasoning-service failures are server
// errors; a missing file or empty rule is the caller's.
func (h *ScanHandler) Analyze(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "No file uploaded"})
	}
	if h.MaxUploadBytes > 0 && fh.Size > h.MaxUploadBytes {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "File too large"})
	}

	var rules [3]string
	for i, field := range []string{"rule1", "rule2", "rule3"} {
		rules[i] = strings.TrimSpace(c.FormValue(field))
		if rules[i] == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "rule1, rule2 and rule3 are required"})
		}
	}

	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error processing document"})
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error processing document"})
	}

	text, err := h.Extractor.Extract(data)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to read PDF text. Ensure the file is a valid PDF."})
	}

	prompt := scan.BuildPrompt(text, rules)

	ctx, cancel := context.WithTimeout(c.Request().Context(), scanTimeout)
	defer cancel()

	results, err := h.Audit.Evaluate(ctx, prompt)
	if err != nil {
		if errors.Is(err, scan.ErrMalformedResponse) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "AI response was not valid JSON."})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Compliance analysis service is unavailable."})
	}

	return c.JSON(http.StatusOK, echo.Map{"results": results})
}
