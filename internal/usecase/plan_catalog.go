package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/domain/repository"
)

// PlanSpec describes a catalog plan as an operator writes it.
type PlanSpec struct {
	Name         string                 `yaml:"name" json:"name" validate:"required,max=120"`
	Description  string                 `yaml:"description" json:"description"`
	Interval     string                 `yaml:"interval" json:"interval" validate:"required,oneof=month year"`
	Price        string                 `yaml:"price" json:"price" validate:"required"`
	Currency     string                 `yaml:"currency" json:"currency" validate:"omitempty,len=3"`
	DisplayOrder int                    `yaml:"display_order" json:"display_order"`
	Featured     *bool                  `yaml:"featured" json:"featured"`
	Active       *bool                  `yaml:"active" json:"active"`
	Groups       []string               `yaml:"groups" json:"groups"`
	Features     map[string]interface{} `yaml:"features" json:"features"`
}

// Catalog is the plan seed file.
type Catalog struct {
	Plans []PlanSpec `yaml:"plans"`
}

// ParseCatalog decodes a YAML plan catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, billingerrors.MalformedInput(fmt.Sprintf("invalid plan catalog: %v", err))
	}
	for i, spec := range catalog.Plans {
		if strings.TrimSpace(spec.Name) == "" {
			return nil, billingerrors.MalformedInput(fmt.Sprintf("plan %d has no name", i))
		}
	}
	return &catalog, nil
}

// SyncSummary counts the outcome of a catalog sync.
type SyncSummary struct {
	Created      int               `json:"created"`
	Updated      int               `json:"updated"`
	Provisioning *ProvisionSummary `json:"provisioning,omitempty"`
}

// PlanCatalogService manages the plan catalog and its group grants.
type PlanCatalogService struct {
	plans       repository.PlanRepository
	groups      repository.GroupRepository
	provisioner *PlanProvisioner
	currency    string
	logger      *zap.Logger
}

// NewPlanCatalogService creates a catalog service. currency is used for
// plans that do not name one.
func NewPlanCatalogService(
	plans repository.PlanRepository,
	groups repository.GroupRepository,
	provisioner *PlanProvisioner,
	currency string,
	logger *zap.Logger,
) *PlanCatalogService {
	return &PlanCatalogService{
		plans:       plans,
		groups:      groups,
		provisioner: provisioner,
		currency:    strings.ToUpper(currency),
		logger:      logger,
	}
}

// ListActive returns active plans in display order.
func (s *PlanCatalogService) ListActive(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	plans, err := s.plans.ListActive(ctx)
	if err != nil {
		return nil, billingerrors.Internal("failed to list plans", err)
	}
	return plans, nil
}

// Create adds a plan to the catalog and provisions it. A provisioning
// failure leaves the plan stored and not purchasable.
func (s *PlanCatalogService) Create(ctx context.Context, spec PlanSpec) (*model.SubscriptionPlan, error) {
	interval := model.BillingInterval(spec.Interval)
	existing, err := s.plans.GetByNameAndInterval(ctx, spec.Name, interval)
	if err != nil {
		return nil, billingerrors.Internal("failed to load plan", err)
	}
	if existing != nil {
		return nil, billingerrors.Conflict(fmt.Sprintf("plan %q (%s) already exists", spec.Name, spec.Interval))
	}

	plan := &model.SubscriptionPlan{}
	if err := s.apply(plan, spec); err != nil {
		return nil, err
	}
	plan.ProvisioningState = model.ProvisioningUnprovisioned
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, billingerrors.Internal("failed to create plan", err)
	}
	if err := s.setGroups(ctx, plan.ID, spec.Groups); err != nil {
		return nil, err
	}

	provisioned, _, err := s.provisioner.Provision(ctx, plan.ID)
	if err != nil {
		s.logger.Warn("Plan created without provider code",
			zap.Int64("plan_id", plan.ID),
			zap.Error(err))
		return plan, nil
	}
	return provisioned, nil
}

// Sync upserts every catalog entry by name and interval, replaces its
// groups, then provisions whatever is still pending.
func (s *PlanCatalogService) Sync(ctx context.Context, catalog *Catalog) (*SyncSummary, error) {
	summary := &SyncSummary{}
	for _, spec := range catalog.Plans {
		interval := model.BillingInterval(spec.Interval)
		plan, err := s.plans.GetByNameAndInterval(ctx, spec.Name, interval)
		if err != nil {
			return summary, billingerrors.Internal("failed to load plan", err)
		}

		if plan == nil {
			plan = &model.SubscriptionPlan{ProvisioningState: model.ProvisioningUnprovisioned}
			if err := s.apply(plan, spec); err != nil {
				return summary, err
			}
			if err := s.plans.Create(ctx, plan); err != nil {
				return summary, billingerrors.Internal("failed to create plan", err)
			}
			summary.Created++
		} else {
			if err := s.apply(plan, spec); err != nil {
				return summary, err
			}
			if err := s.plans.Update(ctx, plan); err != nil {
				return summary, billingerrors.Internal("failed to update plan", err)
			}
			summary.Updated++
		}

		if err := s.setGroups(ctx, plan.ID, spec.Groups); err != nil {
			return summary, err
		}
		s.logger.Info("Catalog plan synced",
			zap.Int64("plan_id", plan.ID),
			zap.String("plan", plan.Name),
			zap.String("interval", string(plan.Interval)))
	}

	provisioning, err := s.provisioner.ProvisionPending(ctx)
	if err != nil {
		return summary, err
	}
	summary.Provisioning = provisioning
	return summary, nil
}

// apply copies spec onto plan. The provider code and provisioning state of
// an existing plan are kept.
func (s *PlanCatalogService) apply(plan *model.SubscriptionPlan, spec PlanSpec) error {
	interval := model.BillingInterval(spec.Interval)
	if interval != model.IntervalMonthly && interval != model.IntervalYearly {
		return billingerrors.MalformedInput(fmt.Sprintf("plan %q has unknown interval %q", spec.Name, spec.Interval))
	}
	price, err := decimal.NewFromString(spec.Price)
	if err != nil || price.IsNegative() {
		return billingerrors.MalformedInput(fmt.Sprintf("plan %q has invalid price %q", spec.Name, spec.Price))
	}

	plan.Name = strings.TrimSpace(spec.Name)
	plan.Description = spec.Description
	plan.Interval = interval
	plan.Price = price.Round(2)
	plan.Currency = strings.ToUpper(spec.Currency)
	if plan.Currency == "" {
		plan.Currency = s.currency
	}
	plan.DisplayOrder = spec.DisplayOrder
	plan.Featured = spec.Featured == nil || *spec.Featured
	plan.IsActive = spec.Active == nil || *spec.Active
	if spec.Features != nil {
		plan.Features = model.Features(spec.Features)
	}
	return nil
}

func (s *PlanCatalogService) setGroups(ctx context.Context, planID int64, names []string) error {
	groups, err := s.groups.EnsureGroups(ctx, names)
	if err != nil {
		return billingerrors.Internal("failed to ensure groups", err)
	}
	ids := make([]int64, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	if err := s.groups.SetPlanGroups(ctx, planID, ids); err != nil {
		return billingerrors.Internal("failed to set plan groups", err)
	}
	return nil
}
