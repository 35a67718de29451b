package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codeabuu/simplifydocs/internal/adapter/repository"
	domainRepo "github.com/codeabuu/simplifydocs/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Subscription domainRepo.SubscriptionRepository
	Plan         domainRepo.PlanRepository
	Group        domainRepo.GroupRepository
	User         domainRepo.UserRepository
	Payment      domainRepo.PaymentRepository
	WebhookEvent domainRepo.WebhookEventRepository
	Cancellation domainRepo.CancellationRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Subscription: repository.NewSubscriptionRepository(db, logger),
		Plan:         repository.NewPlanRepository(db, logger),
		Group:        repository.NewGroupRepository(db, logger),
		User:         repository.NewUserRepository(db, logger),
		Payment:      repository.NewPaymentRepository(db, logger),
		WebhookEvent: repository.NewWebhookEventRepository(db, logger),
		Cancellation: repository.NewCancellationRepository(db, logger),
	}
}
