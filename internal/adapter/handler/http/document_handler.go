package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/codeabuu/simplifydocs/internal/usecase"
)

// DocumentProcessor summarizes and answers questions about uploads.
type DocumentProcessor interface {
	Summarize(ctx context.Context, userID uuid.UUID, filename string, content []byte, promptKey string) ([]byte, error)
	Ask(ctx context.Context, userID uuid.UUID, filename string, content []byte, question string) (string, error)
	PreviewSpreadsheet(ctx context.Context, userID uuid.UUID, filename string, content []byte) (*usecase.SpreadsheetPreview, error)
	SuggestChart(ctx context.Context, userID uuid.UUID, filename string, content []byte, sampleSize int) (string, error)
}

type DocumentHandler struct {
	logger         *zap.Logger
	documents      DocumentProcessor
	maxUploadBytes int64
}

func NewDocumentHandler(logger *zap.Logger, documents DocumentProcessor, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{
		logger:         logger,
		documents:      documents,
		maxUploadBytes: maxUploadBytes,
	}
}

// Summarize handles POST /api/v1/documents/summarize and returns the
// summary as a PDF download.
func (h *DocumentHandler) Summarize(c echo.Context) error {
	user, ok, writeErr := currentUser(c)
	if !ok {
		return writeErr
	}

	filename, content, err := h.readUpload(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	pdf, err := h.documents.Summarize(c.Request().Context(), user.ID, filename, content, c.FormValue("prompt_key"))
	if err != nil {
		return respondError(c, h.logger, "Failed to summarize document", err)
	}

	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", base+"_summary.pdf"))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

// Ask handles POST /api/v1/documents/ask
func (h *DocumentHandler) Ask(c echo.Context) error {
	user, ok, writeErr := currentUser(c)
	if !ok {
		return writeErr
	}

	filename, content, err := h.readUpload(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	question := c.FormValue("question")
	if strings.TrimSpace(question) == "" {
		question = c.FormValue("custom_prompt")
	}

	answer, err := h.documents.Ask(c.Request().Context(), user.ID, filename, content, question)
	if err != nil {
		return respondError(c, h.logger, "Failed to answer question", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"answer": answer})
}

// PreviewSpreadsheet handles POST /api/v1/documents/spreadsheet/preview
func (h *DocumentHandler) PreviewSpreadsheet(c echo.Context) error {
	user, ok, writeErr := currentUser(c)
	if !ok {
		return writeErr
	}

	filename, content, err := h.readUpload(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	preview, err := h.documents.PreviewSpreadsheet(c.Request().Context(), user.ID, filename, content)
	if err != nil {
		return respondError(c, h.logger, "Failed to preview spreadsheet", err)
	}
	return c.JSON(http.StatusOK, preview)
}

// SuggestChart handles POST /api/v1/documents/spreadsheet/analyze. The
// optional sample_size form field bounds how many rows the model sees.
func (h *DocumentHandler) SuggestChart(c echo.Context) error {
	user, ok, writeErr := currentUser(c)
	if !ok {
		return writeErr
	}

	filename, content, err := h.readUpload(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	sampleSize := 0
	if raw := strings.TrimSpace(c.FormValue("sample_size")); raw != "" {
		sampleSize, err = strconv.Atoi(raw)
		if err != nil || sampleSize < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "sample_size must be a positive integer"})
		}
	}

	suggestion, err := h.documents.SuggestChart(c.Request().Context(), user.ID, filename, content, sampleSize)
	if err != nil {
		return respondError(c, h.logger, "Failed to analyze spreadsheet", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"chart_suggestion": suggestion})
}

func (h *DocumentHandler) readUpload(c echo.Context) (string, []byte, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("file is required")
	}
	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		return "", nil, fmt.Errorf("file exceeds %d bytes", h.maxUploadBytes)
	}

	f, err := header.Open()
	if err != nil {
		return "", nil, fmt.Errorf("file could not be read")
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fmt.Errorf("file could not be read")
	}
	return filepath.Base(header.Filename), content, nil
}
