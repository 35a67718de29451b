// Package bootstrap builds the service graph shared by the API server and
// the billing CLI.
package bootstrap

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codeabuu/simplifydocs/internal/config"
	"github.com/codeabuu/simplifydocs/internal/domain/provider"
	"github.com/codeabuu/simplifydocs/internal/infrastructure/database"
	"github.com/codeabuu/simplifydocs/internal/infrastructure/document"
	"github.com/codeabuu/simplifydocs/internal/infrastructure/lease"
	providerfactory "github.com/codeabuu/simplifydocs/internal/infrastructure/provider"
	"github.com/codeabuu/simplifydocs/internal/infrastructure/summarizer"
	"github.com/codeabuu/simplifydocs/internal/usecase"
	"github.com/codeabuu/simplifydocs/pkg/messaging"
)

const leasePrefix = "simplifydocs:lease:"

// UseCases holds every service the entry points wire into handlers or
// commands.
type UseCases struct {
	Repos          *database.Repositories
	Gateway        provider.PaymentGateway
	Leases         lease.Manager
	Ledger         *usecase.SubscriptionLedger
	Reconciliation *usecase.ReconciliationService
	Provisioner    *usecase.PlanProvisioner
	Catalog        *usecase.PlanCatalogService
	Checkout       *usecase.CheckoutService
	Payments       *usecase.PaymentUsecase
	Documents      *usecase.DocumentService
}

// NewUseCases builds the services on top of db. rdb may be nil, in which
// case leases are process-local and ledger events are not published.
func NewUseCases(cfg *config.Config, db *gorm.DB, rdb *redis.Client, logger *zap.Logger) (*UseCases, error) {
	repos := database.NewRepositories(db, logger)

	gateway, err := providerfactory.NewFactory(cfg, logger).GetGateway(provider.ProviderTypePaystack)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment gateway: %w", err)
	}

	var (
		leases    lease.Manager
		publisher messaging.Publisher
	)
	if rdb != nil {
		leases = lease.NewRedisManager(rdb, leasePrefix)
		publisher = messaging.NewRedisPublisher(rdb)
	} else {
		leases = lease.NewMemoryManager()
		publisher = messaging.NopPublisher{}
	}

	projector := usecase.NewEntitlementProjector(repos.Group, cfg.Billing.AllowCustomGroups, logger)
	ledger := usecase.NewSubscriptionLedger(repos.Subscription, repos.Plan, projector, publisher, logger)

	reconciliation := usecase.NewReconciliationService(
		gateway,
		ledger,
		repos.Plan,
		repos.User,
		repos.WebhookEvent,
		repos.Cancellation,
		cfg.Billing.CancellationMaxAttempts,
		logger,
	)

	provisioner := usecase.NewPlanProvisioner(repos.Plan, gateway, cfg.Billing.ProvisioningStaleAfter, logger)
	catalog := usecase.NewPlanCatalogService(repos.Plan, repos.Group, provisioner, cfg.Paystack.Currency, logger)

	summarize := summarizer.NewOpenAISummarizer(summarizer.Config{
		APIKey:    cfg.OpenAI.APIKey,
		BaseURL:   cfg.OpenAI.BaseURL,
		Model:     cfg.OpenAI.Model,
		MaxTokens: cfg.OpenAI.MaxTokens,
	}, logger)

	extractor := document.NewExtractor(cfg.Documents.MaxChars)
	documents := usecase.NewDocumentService(
		ledger,
		leases,
		extractor,
		extractor,
		summarize,
		document.NewRenderer(),
		cfg.Documents.LeaseTTL,
		logger,
	)

	return &UseCases{
		Repos:          repos,
		Gateway:        gateway,
		Leases:         leases,
		Ledger:         ledger,
		Reconciliation: reconciliation,
		Provisioner:    provisioner,
		Catalog:        catalog,
		Checkout:       usecase.NewCheckoutService(gateway, ledger, repos.Plan, cfg.Service.BaseURL, logger),
		Payments:       usecase.NewPaymentUsecase(repos.Payment, ledger, gateway, logger),
		Documents:      documents,
	}, nil
}
