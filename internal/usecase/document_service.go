package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
	"github.com/codeabuu/simplifydocs/internal/infrastructure/lease"
	"github.com/codeabuu/simplifydocs/internal/infrastructure/metrics"
)

// Prompt keys accepted by Summarize.
const (
	PromptProfessionalAudience = "professional_audience"
	PromptQAFormat             = "qa_format"
	PromptSimpleSummary        = "simple_summary"
)

// EmptyQuestionAnswer is returned for a blank question.
const EmptyQuestionAnswer = "Please enter your question."

// ChartRequestAnswer is returned when a spreadsheet question asks for a
// chart. Charts are not drawn here.
const ChartRequestAnswer = "It looks like you're asking about chart generation. " +
	"Please use the chart suggestion feature to pick a visualization for your dataset. " +
	"If you have other questions, let me know!"

// Spreadsheet defaults.
const (
	PreviewRows           = 5
	DefaultChartSample    = 10
	MaxChartSample        = 1000
	chartSuggestionPrompt = "You are a data analysis assistant. Analyze the following dataset and suggest the most suitable chart type. " +
		"Respond in the following format:\n" +
		"Chart type: <chart_type>\n" +
		"Reason: <reason for the suggested chart type>\n" +
		"Additional notes: <optional additional context or alternative chart types>"
)

var chartKeywords = []string{
	"generate chart", "generate a bar chart", "create chart", "make chart", "plot chart",
	"generate graph", "create graph", "make graph", "plot graph",
	"visualize data", "show chart", "show graph", "draw chart", "draw graph",
}

var summaryPrompts = map[string]string{
	PromptProfessionalAudience: "Condense this text into a summary suitable for a professional audience, retaining technical details.",
	PromptQAFormat:             "Summarize this document in a Q&A format with the most critical questions answered concisely.",
	PromptSimpleSummary:        "Provide a simple and concise summary of this document.",
}

const defaultDocumentLeaseTTL = 5 * time.Minute

// TextExtractor pulls plain text out of an upload.
type TextExtractor interface {
	Extract(filename string, content []byte) (string, error)
}

// SpreadsheetReader reads tabular uploads.
type SpreadsheetReader interface {
	Preview(filename string, content []byte, rows int) ([]string, []map[string]string, error)
	Sample(filename string, content []byte, sampleSize int) (string, error)
}

// SpreadsheetPreview is the header and first rows of a spreadsheet.
type SpreadsheetPreview struct {
	Columns []string            `json:"columns"`
	Preview []map[string]string `json:"preview"`
}

// Summarizer condenses and answers questions about text.
type Summarizer interface {
	Summarize(ctx context.Context, text, instruction string) (string, error)
	Answer(ctx context.Context, text, question string) (string, error)
}

// SummaryRenderer renders a summary as a downloadable document.
type SummaryRenderer interface {
	Render(summary string) ([]byte, error)
}

// DocumentService summarizes uploads for entitled users. Each user
// processes one document at a time under a lease; other users are not
// affected.
type DocumentService struct {
	ledger     *SubscriptionLedger
	leases     lease.Manager
	extractor  TextExtractor
	sheets     SpreadsheetReader
	summarizer Summarizer
	renderer   SummaryRenderer
	leaseTTL   time.Duration
	logger     *zap.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	ledger *SubscriptionLedger,
	leases lease.Manager,
	extractor TextExtractor,
	sheets SpreadsheetReader,
	summarizer Summarizer,
	renderer SummaryRenderer,
	leaseTTL time.Duration,
	logger *zap.Logger,
) *DocumentService {
	if leaseTTL <= 0 {
		leaseTTL = defaultDocumentLeaseTTL
	}
	return &DocumentService{
		ledger:     ledger,
		leases:     leases,
		extractor:  extractor,
		sheets:     sheets,
		summarizer: summarizer,
		renderer:   renderer,
		leaseTTL:   leaseTTL,
		logger:     logger,
	}
}

// PromptFor returns the instruction for key, falling back to the simple
// summary for unknown keys.
func PromptFor(key string) string {
	if prompt, ok := summaryPrompts[key]; ok {
		return prompt
	}
	return summaryPrompts[PromptSimpleSummary]
}

// Summarize extracts the upload's text, summarizes it with the prompt named
// by promptKey and returns the summary rendered as PDF.
func (s *DocumentService) Summarize(ctx context.Context, userID uuid.UUID, filename string, content []byte, promptKey string) (pdf []byte, err error) {
	defer func() { metrics.RecordDocumentJob("summarize", outcomeOf(err)) }()

	err = s.withLease(ctx, userID, func() error {
		text, err := s.extractor.Extract(filename, content)
		if err != nil {
			return err
		}
		summary, err := s.summarizer.Summarize(ctx, text, PromptFor(promptKey))
		if err != nil {
			return err
		}
		pdf, err = s.renderer.Render(summary)
		if err != nil {
			return billingerrors.Internal("failed to render summary", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Document summarized",
		zap.String("user_id", userID.String()),
		zap.String("filename", filename),
		zap.String("prompt", promptKey))
	return pdf, nil
}

// Ask answers question from the upload's text.
func (s *DocumentService) Ask(ctx context.Context, userID uuid.UUID, filename string, content []byte, question string) (answer string, err error) {
	defer func() { metrics.RecordDocumentJob("ask", outcomeOf(err)) }()

	question = strings.TrimSpace(question)
	if question == "" {
		return "", billingerrors.MalformedInput(EmptyQuestionAnswer)
	}
	if isSpreadsheet(filename) && asksForChart(question) {
		return ChartRequestAnswer, nil
	}

	err = s.withLease(ctx, userID, func() error {
		text, err := s.extractor.Extract(filename, content)
		if err != nil {
			return err
		}
		answer, err = s.summarizer.Answer(ctx, text, question)
		return err
	})
	if err != nil {
		return "", err
	}
	return answer, nil
}

// PreviewSpreadsheet returns the header and first rows of a spreadsheet
// upload. No model is called, so neither entitlement nor the lease applies.
func (s *DocumentService) PreviewSpreadsheet(ctx context.Context, userID uuid.UUID, filename string, content []byte) (*SpreadsheetPreview, error) {
	if !isSpreadsheet(filename) {
		return nil, billingerrors.MalformedInput("unsupported file format; upload a .csv or .xlsx file")
	}
	columns, rows, err := s.sheets.Preview(filename, content, PreviewRows)
	if err != nil {
		return nil, err
	}
	return &SpreadsheetPreview{Columns: columns, Preview: rows}, nil
}

// SuggestChart asks the model which chart type best fits the first
// sampleSize rows of a spreadsheet upload.
func (s *DocumentService) SuggestChart(ctx context.Context, userID uuid.UUID, filename string, content []byte, sampleSize int) (suggestion string, err error) {
	defer func() { metrics.RecordDocumentJob("analyze", outcomeOf(err)) }()

	if !isSpreadsheet(filename) {
		return "", billingerrors.MalformedInput("unsupported file format; upload a .csv or .xlsx file")
	}
	switch {
	case sampleSize <= 0:
		sampleSize = DefaultChartSample
	case sampleSize > MaxChartSample:
		sampleSize = MaxChartSample
	}

	err = s.withLease(ctx, userID, func() error {
		sample, err := s.sheets.Sample(filename, content, sampleSize)
		if err != nil {
			return err
		}
		suggestion, err = s.summarizer.Summarize(ctx, sample, chartSuggestionPrompt)
		return err
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("Chart suggested",
		zap.String("user_id", userID.String()),
		zap.String("filename", filename),
		zap.Int("sample_size", sampleSize))
	return suggestion, nil
}

func isSpreadsheet(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".xlsx", ".xls":
		return true
	}
	return false
}

func asksForChart(question string) bool {
	q := strings.ToLower(question)
	for _, keyword := range chartKeywords {
		if strings.Contains(q, keyword) {
			return true
		}
	}
	return false
}

// withLease checks entitlement and runs fn while holding the user's
// document lease. The lease is released on every return path.
func (s *DocumentService) withLease(ctx context.Context, userID uuid.UUID, fn func() error) error {
	sub, err := s.ledger.Get(ctx, userID)
	if err != nil {
		return err
	}
	if sub == nil || !sub.HasActiveSubscription() {
		return billingerrors.ErrNoEntitlement
	}

	held, err := s.leases.Acquire(ctx, "documents:"+userID.String(), s.leaseTTL)
	if err != nil {
		if errors.Is(err, lease.ErrHeld) {
			return billingerrors.ErrLeaseHeld
		}
		return billingerrors.Internal("failed to acquire document lease", err)
	}
	defer func() {
		// The request context may already be done; release on a fresh one.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := held.Release(releaseCtx); err != nil {
			s.logger.Warn("Failed to release document lease",
				zap.String("key", held.Key()),
				zap.Error(err))
		}
	}()

	return fn()
}
