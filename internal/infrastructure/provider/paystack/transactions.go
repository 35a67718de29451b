package paystack

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
	"github.com/codeabuu/simplifydocs/internal/domain/provider"
)

// InitializeTransaction starts a hosted checkout
// POST /transaction/initialize
func (p *PaystackProvider) InitializeTransaction(ctx context.Context, req *provider.InitializeTransactionRequest) (*provider.InitializeTransactionResponse, error) {
	if req.Email == "" || req.PlanCode == "" {
		return nil, billingerrors.MalformedInput("email and plan are required to start checkout")
	}

	currency := req.Currency
	if currency == "" {
		currency = p.currency
	}
	body := map[string]interface{}{
		"email":        req.Email,
		"amount":       req.AmountMinor,
		"plan":         req.PlanCode,
		"callback_url": req.CallbackURL,
	}
	if currency != "" {
		body["currency"] = currency
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}

	var out provider.InitializeTransactionResponse
	if err := p.call(ctx, "initialize_transaction", http.MethodPost, "/transaction/initialize", body, &out); err != nil {
		return nil, err
	}

	p.logger.Info("Checkout initialized",
		zap.String("reference", out.Reference),
		zap.String("plan_code", req.PlanCode))
	return &out, nil
}

// VerifyTransaction fetches the verified state of a transaction
// GET /transaction/verify/:reference
func (p *PaystackProvider) VerifyTransaction(ctx context.Context, reference string) (*provider.Transaction, error) {
	if reference == "" {
		return nil, billingerrors.MalformedInput("transaction reference is required")
	}

	var out rawObject[transactionData]
	path := "/transaction/verify/" + url.PathEscape(reference)
	if err := p.call(ctx, "verify_transaction", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Parsed.toTransaction(out.Raw), nil
}

// ListCustomerTransactions lists a customer's transactions
// GET /customer/:code then GET /transaction?customer=:id
func (p *PaystackProvider) ListCustomerTransactions(ctx context.Context, customerCode string) ([]*provider.Transaction, error) {
	customer, err := p.fetchCustomer(ctx, customerCode)
	if err != nil {
		return nil, err
	}

	var out []rawObject[transactionData]
	path := fmt.Sprintf("/transaction?customer=%d&perPage=50", customer.ID)
	if err := p.call(ctx, "list_transactions", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	txs := make([]*provider.Transaction, 0, len(out))
	for _, item := range out {
		txs = append(txs, item.Parsed.toTransaction(item.Raw))
	}
	return txs, nil
}
