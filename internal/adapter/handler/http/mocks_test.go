package http

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/codeabuu/simplifydocs/internal/domain/entity"
	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/domain/provider"
	"github.com/codeabuu/simplifydocs/internal/domain/repository"
	"github.com/codeabuu/simplifydocs/internal/middleware/auth"
	"github.com/codeabuu/simplifydocs/internal/usecase"
)

// MockReconciler is a mock implementation of the reconciliation handlers' dependencies
type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) HandleWebhook(ctx context.Context, payload *usecase.WebhookPayload) (model.WebhookStatus, error) {
	args := m.Called(ctx, payload)
	return args.Get(0).(model.WebhookStatus), args.Error(1)
}

func (m *MockReconciler) FinalizeCheckout(ctx context.Context, reference string) (*usecase.CheckoutResult, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.CheckoutResult), args.Error(1)
}

func (m *MockReconciler) RefreshUser(ctx context.Context, userID uuid.UUID) (*model.UserSubscription, *usecase.RefreshResult, error) {
	args := m.Called(ctx, userID)
	var sub *model.UserSubscription
	if v := args.Get(0); v != nil {
		sub = v.(*model.UserSubscription)
	}
	var result *usecase.RefreshResult
	if v := args.Get(1); v != nil {
		result = v.(*usecase.RefreshResult)
	}
	return sub, result, args.Error(2)
}

func (m *MockReconciler) Cancel(ctx context.Context, userID uuid.UUID, reason string) (*model.UserSubscription, error) {
	args := m.Called(ctx, userID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserSubscription), args.Error(1)
}

func (m *MockReconciler) Refresh(ctx context.Context, filter repository.SubscriptionFilter) (*usecase.RefreshResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.RefreshResult), args.Error(1)
}

func (m *MockReconciler) ClearDangling(ctx context.Context) (*usecase.SweepResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.SweepResult), args.Error(1)
}

// MockLedger is a mock implementation of SubscriptionReader
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Get(ctx context.Context, userID uuid.UUID) (*model.UserSubscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserSubscription), args.Error(1)
}

// MockCheckoutStarter is a mock implementation of CheckoutStarter
type MockCheckoutStarter struct {
	mock.Mock
}

func (m *MockCheckoutStarter) Start(ctx context.Context, user *model.User, planID int64) (*usecase.CheckoutSession, error) {
	args := m.Called(ctx, user, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.CheckoutSession), args.Error(1)
}

// MockDocuments is a mock implementation of DocumentProcessor
type MockDocuments struct {
	mock.Mock
}

func (m *MockDocuments) Summarize(ctx context.Context, userID uuid.UUID, filename string, content []byte, promptKey string) ([]byte, error) {
	args := m.Called(ctx, userID, filename, content, promptKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockDocuments) Ask(ctx context.Context, userID uuid.UUID, filename string, content []byte, question string) (string, error) {
	args := m.Called(ctx, userID, filename, content, question)
	return args.String(0), args.Error(1)
}

func (m *MockDocuments) PreviewSpreadsheet(ctx context.Context, userID uuid.UUID, filename string, content []byte) (*usecase.SpreadsheetPreview, error) {
	args := m.Called(ctx, userID, filename, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.SpreadsheetPreview), args.Error(1)
}

func (m *MockDocuments) SuggestChart(ctx context.Context, userID uuid.UUID, filename string, content []byte, sampleSize int) (string, error) {
	args := m.Called(ctx, userID, filename, content, sampleSize)
	return args.String(0), args.Error(1)
}

// MockPaymentHistory is a mock implementation of PaymentHistory
type MockPaymentHistory struct {
	mock.Mock
}

func (m *MockPaymentHistory) GetUserPayments(ctx context.Context, userID uuid.UUID, params entity.PaginationParams) (*entity.PaginatedPaymentsResponse, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PaginatedPaymentsResponse), args.Error(1)
}

func (m *MockPaymentHistory) GetProviderTransactions(ctx context.Context, userID uuid.UUID) ([]*provider.Transaction, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*provider.Transaction), args.Error(1)
}

var testUser = &auth.AuthUser{
	UserID:    uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"),
	Email:     "ada@example.com",
	FirstName: "Ada",
	Role:      "authenticated",
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewRequestValidator()
	return e
}

// call runs handler against req, optionally as testUser.
func call(t *testing.T, handler echo.HandlerFunc, req *http.Request, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	if authed {
		req = req.WithContext(auth.WithUser(req.Context(), testUser))
	}
	rec := httptest.NewRecorder()
	c := newTestEcho().NewContext(req, rec)
	require.NoError(t, handler(c))
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func multipartRequest(t *testing.T, target, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.Copy(part, bytes.NewReader(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}
