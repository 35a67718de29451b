package usecase_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/domain/provider"
	"github.com/codeabuu/simplifydocs/internal/domain/repository"
)

// MockGateway is a mock implementation of PaymentGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCustomer(ctx context.Context, req *provider.CreateCustomerRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CreatePlan(ctx context.Context, req *provider.CreatePlanRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) FindPlan(ctx context.Context, req *provider.CreatePlanRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) InitializeTransaction(ctx context.Context, req *provider.InitializeTransactionRequest) (*provider.InitializeTransactionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.InitializeTransactionResponse), args.Error(1)
}

func (m *MockGateway) VerifyTransaction(ctx context.Context, reference string) (*provider.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Transaction), args.Error(1)
}

func (m *MockGateway) GetSubscription(ctx context.Context, code string) (*provider.Subscription, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Subscription), args.Error(1)
}

func (m *MockGateway) CancelSubscription(ctx context.Context, req *provider.CancelSubscriptionRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockGateway) ListCustomerSubscriptions(ctx context.Context, customerCode string, activeOnly bool) ([]*provider.Subscription, error) {
	args := m.Called(ctx, customerCode, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*provider.Subscription), args.Error(1)
}

func (m *MockGateway) ListCustomerTransactions(ctx context.Context, customerCode string) ([]*provider.Transaction, error) {
	args := m.Called(ctx, customerCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*provider.Transaction), args.Error(1)
}

func (m *MockGateway) GetProviderName() string {
	return "mock"
}

// memoryStore backs every fake repository with one lock, mirroring the
// row-locking behaviour of the database implementation.
type memoryStore struct {
	mu sync.Mutex

	nextID        int64
	subs          map[uuid.UUID]*model.UserSubscription
	payments      map[string]*model.Payment
	plans         map[int64]*model.SubscriptionPlan
	groups        map[string]*model.Group
	planGroups    map[int64][]int64
	userGroups    map[uuid.UUID][]int64
	users         map[uuid.UUID]*model.User
	webhookEvents []*model.WebhookEvent
	cancellations map[string]*model.SubscriptionCancellation

	groupErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		subs:          map[uuid.UUID]*model.UserSubscription{},
		payments:      map[string]*model.Payment{},
		plans:         map[int64]*model.SubscriptionPlan{},
		groups:        map[string]*model.Group{},
		planGroups:    map[int64][]int64{},
		userGroups:    map[uuid.UUID][]int64{},
		users:         map[uuid.UUID]*model.User{},
		cancellations: map[string]*model.SubscriptionCancellation{},
	}
}

func (s *memoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memoryStore) Subscriptions() repository.SubscriptionRepository {
	return &memorySubscriptions{s}
}

func (s *memoryStore) Plans() repository.PlanRepository { return &memoryPlans{s} }

func (s *memoryStore) Groups() repository.GroupRepository { return &memoryGroups{s} }

func (s *memoryStore) Users() repository.UserRepository { return &memoryUsers{s} }

func (s *memoryStore) Payments() repository.PaymentRepository { return &memoryPayments{s} }

func (s *memoryStore) WebhookEvents() repository.WebhookEventRepository {
	return &memoryWebhookEvents{s}
}

func (s *memoryStore) Cancellations() repository.CancellationRepository {
	return &memoryCancellations{s}
}

// addPlan stores a provisioned plan with the given groups.
func (s *memoryStore) addPlan(name, code string, interval model.BillingInterval, groups ...string) *model.SubscriptionPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan := &model.SubscriptionPlan{
		ID:                s.id(),
		Name:              name,
		Interval:          interval,
		Currency:          "NGN",
		IsActive:          true,
		ProvisioningState: model.ProvisioningProvisioned,
	}
	if code != "" {
		plan.ProviderPlanCode = &code
	} else {
		plan.ProvisioningState = model.ProvisioningUnprovisioned
	}
	s.plans[plan.ID] = plan
	for _, g := range groups {
		s.planGroups[plan.ID] = append(s.planGroups[plan.ID], s.ensureGroup(g).ID)
	}
	return plan
}

// ageClaim moves a plan's provisioning claim back in time.
func (s *memoryStore) ageClaim(planID int64, by time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claimedAt := s.plans[planID].ProvisioningClaimedAt.Add(-by)
	s.plans[planID].ProvisioningClaimedAt = &claimedAt
}

func (s *memoryStore) addUser(email string) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := &model.User{ID: uuid.New(), Email: email, FirstName: "Test"}
	s.users[user.ID] = user
	return user
}

func (s *memoryStore) ensureGroup(name string) *model.Group {
	if g, ok := s.groups[name]; ok {
		return g
	}
	g := &model.Group{ID: s.id(), Name: name}
	s.groups[name] = g
	return g
}

func (s *memoryStore) groupNames(userID uuid.UUID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, id := range s.userGroups[userID] {
		for _, g := range s.groups {
			if g.ID == id {
				names = append(names, g.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func (s *memoryStore) row(userID uuid.UUID) *model.UserSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(s.subs[userID])
}

func (s *memoryStore) paymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

func (s *memoryStore) load(row *model.UserSubscription) *model.UserSubscription {
	if row == nil {
		return nil
	}
	out := row.Clone()
	out.Plan = nil
	if out.PlanID != nil {
		if plan, ok := s.plans[*out.PlanID]; ok {
			p := *plan
			out.Plan = &p
		}
	}
	return out
}

type memorySubscriptions struct{ s *memoryStore }

func (r *memorySubscriptions) GetByUserID(_ context.Context, userID uuid.UUID) (*model.UserSubscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.load(r.s.subs[userID]), nil
}

func (r *memorySubscriptions) byCode(code string) *model.UserSubscription {
	for _, row := range r.s.subs {
		if row.Code() == code {
			return row
		}
	}
	return nil
}

func (r *memorySubscriptions) GetBySubscriptionCode(_ context.Context, code string) (*model.UserSubscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.load(r.byCode(code)), nil
}

func (r *memorySubscriptions) GetByCustomerCode(_ context.Context, customerCode string) (*model.UserSubscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range r.s.subs {
		if row.CustomerCode != nil && *row.CustomerCode == customerCode {
			return r.s.load(row), nil
		}
	}
	return nil, nil
}

func (r *memorySubscriptions) GetOrCreate(_ context.Context, userID uuid.UUID) (*model.UserSubscription, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if row, ok := r.s.subs[userID]; ok {
		return r.s.load(row), false, nil
	}
	row := &model.UserSubscription{ID: r.s.id(), UserID: userID, Active: true}
	r.s.subs[userID] = row
	return r.s.load(row), true, nil
}

func (r *memorySubscriptions) write(row *model.UserSubscription, userID uuid.UUID, update model.SubscriptionUpdate, code string) *repository.UpsertResult {
	result := &repository.UpsertResult{}
	if row == nil {
		row = &model.UserSubscription{ID: r.s.id(), UserID: userID, Active: true}
		result.Created = true
	} else {
		result.Previous = r.s.load(row)
	}
	update.ApplyTo(row)
	if code != "" {
		c := code
		row.SubscriptionCode = &c
	}
	r.s.subs[row.UserID] = row
	result.Subscription = r.s.load(row)
	return result
}

func (r *memorySubscriptions) upsert(code string, update model.SubscriptionUpdate) (*repository.UpsertResult, error) {
	row := r.byCode(code)
	if row != nil && update.UserID != nil && row.UserID != *update.UserID {
		return nil, errors.New("subscription code belongs to another user")
	}
	if row == nil {
		if update.UserID == nil {
			return nil, errors.New("user is required to create a subscription")
		}
		row = r.s.subs[*update.UserID]
	}
	userID := uuid.Nil
	if update.UserID != nil {
		userID = *update.UserID
	}
	return r.write(row, userID, update, code), nil
}

func (r *memorySubscriptions) UpsertBySubscriptionCode(_ context.Context, code string, update model.SubscriptionUpdate) (*repository.UpsertResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.upsert(code, update)
}

func (r *memorySubscriptions) UpdateByUserID(_ context.Context, userID uuid.UUID, update model.SubscriptionUpdate) (*repository.UpsertResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.write(r.s.subs[userID], userID, update, ""), nil
}

func (r *memorySubscriptions) RecordPayment(_ context.Context, payment *model.Payment, subscriptionCode string, update model.SubscriptionUpdate) (*repository.UpsertResult, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	userID := payment.UserID
	update.UserID = &userID

	if _, ok := r.s.payments[payment.Reference]; ok {
		return r.write(r.s.subs[userID], userID, model.SubscriptionUpdate{}, ""), false, nil
	}
	stored := *payment
	r.s.payments[payment.Reference] = &stored

	if subscriptionCode != "" {
		result, err := r.upsert(subscriptionCode, update)
		return result, err == nil, err
	}
	return r.write(r.s.subs[userID], userID, update, ""), true, nil
}

func (r *memorySubscriptions) List(_ context.Context, filter repository.SubscriptionFilter) ([]*model.UserSubscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	var out []*model.UserSubscription
	for _, row := range r.s.subs {
		if filter.Matches(row, now) {
			out = append(out, r.s.load(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memorySubscriptions) ListCustomerCodes(context.Context) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var codes []string
	for _, row := range r.s.subs {
		if row.CustomerCode != nil {
			codes = append(codes, *row.CustomerCode)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

type memoryPlans struct{ s *memoryStore }

func (r *memoryPlans) copyOf(plan *model.SubscriptionPlan) *model.SubscriptionPlan {
	if plan == nil {
		return nil
	}
	p := *plan
	return &p
}

func (r *memoryPlans) GetByID(_ context.Context, id int64) (*model.SubscriptionPlan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.copyOf(r.s.plans[id]), nil
}

func (r *memoryPlans) GetByProviderCode(_ context.Context, code string) (*model.SubscriptionPlan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, plan := range r.s.plans {
		if plan.Code() == code {
			return r.copyOf(plan), nil
		}
	}
	return nil, nil
}

func (r *memoryPlans) GetByNameAndInterval(_ context.Context, name string, interval model.BillingInterval) (*model.SubscriptionPlan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, plan := range r.s.plans {
		if plan.Name == name && plan.Interval == interval {
			return r.copyOf(plan), nil
		}
	}
	return nil, nil
}

func (r *memoryPlans) sorted(keep func(*model.SubscriptionPlan) bool) []*model.SubscriptionPlan {
	var out []*model.SubscriptionPlan
	for _, plan := range r.s.plans {
		if keep(plan) {
			out = append(out, r.copyOf(plan))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memoryPlans) ListActive(context.Context) ([]*model.SubscriptionPlan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(p *model.SubscriptionPlan) bool { return p.IsActive }), nil
}

func (r *memoryPlans) ListNeedingProvisioning(context.Context) ([]*model.SubscriptionPlan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(p *model.SubscriptionPlan) bool {
		return p.IsActive && p.ProvisioningState != model.ProvisioningProvisioned
	}), nil
}

func (r *memoryPlans) Create(_ context.Context, plan *model.SubscriptionPlan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	plan.ID = r.s.id()
	r.s.plans[plan.ID] = r.copyOf(plan)
	return nil
}

func (r *memoryPlans) Update(_ context.Context, plan *model.SubscriptionPlan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.plans[plan.ID] = r.copyOf(plan)
	return nil
}

func (r *memoryPlans) ClaimProvisioning(_ context.Context, id int64, now time.Time, staleAfter time.Duration) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	plan, ok := r.s.plans[id]
	if !ok {
		return false, nil
	}
	switch plan.ProvisioningState {
	case model.ProvisioningUnprovisioned, model.ProvisioningFailed:
	case model.ProvisioningInProgress:
		if plan.ProvisioningClaimedAt != nil && plan.ProvisioningClaimedAt.After(now.Add(-staleAfter)) {
			return false, nil
		}
	default:
		return false, nil
	}
	plan.ProvisioningState = model.ProvisioningInProgress
	plan.ProvisioningClaimedAt = &now
	return true, nil
}

func (r *memoryPlans) MarkProvisioned(_ context.Context, id int64, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	plan := r.s.plans[id]
	plan.ProviderPlanCode = &code
	plan.ProvisioningState = model.ProvisioningProvisioned
	plan.ProvisioningError = nil
	return nil
}

func (r *memoryPlans) MarkProvisioningFailed(_ context.Context, id int64, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	plan := r.s.plans[id]
	plan.ProvisioningState = model.ProvisioningFailed
	plan.ProvisioningError = &reason
	return nil
}

type memoryGroups struct{ s *memoryStore }

func (r *memoryGroups) EnsureGroups(_ context.Context, names []string) ([]*model.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Group
	for _, name := range names {
		out = append(out, r.s.ensureGroup(name))
	}
	return out, nil
}

func (r *memoryGroups) SetPlanGroups(_ context.Context, planID int64, groupIDs []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.planGroups[planID] = append([]int64(nil), groupIDs...)
	return nil
}

func (r *memoryGroups) PlanGroupIDs(_ context.Context, planID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.groupErr != nil {
		return nil, r.s.groupErr
	}
	return append([]int64(nil), r.s.planGroups[planID]...), nil
}

func (r *memoryGroups) ActivePlanGroupIDs(_ context.Context, excludePlanID *int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []int64
	for planID, ids := range r.s.planGroups {
		if excludePlanID != nil && planID == *excludePlanID {
			continue
		}
		if plan, ok := r.s.plans[planID]; ok && plan.IsActive {
			out = append(out, ids...)
		}
	}
	return out, nil
}

func (r *memoryGroups) UserGroupIDs(_ context.Context, userID uuid.UUID) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]int64(nil), r.s.userGroups[userID]...), nil
}

func (r *memoryGroups) SetUserGroups(_ context.Context, userID uuid.UUID, groupIDs []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.userGroups[userID] = append([]int64(nil), groupIDs...)
	return nil
}

type memoryUsers struct{ s *memoryStore }

func (r *memoryUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.users[id], nil
}

func (r *memoryUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memoryUsers) Ensure(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := *user
	r.s.users[user.ID] = &u
	return nil
}

type memoryPayments struct{ s *memoryStore }

func (r *memoryPayments) GetByReference(_ context.Context, reference string) (*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.payments[reference]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryPayments) ListByUserID(_ context.Context, userID uuid.UUID, limit, offset int) ([]*model.Payment, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*model.Payment
	for _, p := range r.s.payments {
		if p.UserID == userID {
			cp := *p
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Reference > all[j].Reference })
	total := int64(len(all))
	if offset >= len(all) {
		return []*model.Payment{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

type memoryWebhookEvents struct{ s *memoryStore }

func (r *memoryWebhookEvents) Record(_ context.Context, event *model.WebhookEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.webhookEvents = append(r.s.webhookEvents, event)
	return nil
}

type memoryCancellations struct{ s *memoryStore }

func (r *memoryCancellations) Claim(_ context.Context, c *model.SubscriptionCancellation) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.cancellations[c.SubscriptionCode]; ok {
		return false, nil
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	stored := *c
	r.s.cancellations[c.SubscriptionCode] = &stored
	return true, nil
}

func (r *memoryCancellations) MarkDone(_ context.Context, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := r.s.cancellations[code]
	c.Status = model.CancellationDone
	c.Attempts++
	return nil
}

func (r *memoryCancellations) MarkFailed(_ context.Context, code string, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := r.s.cancellations[code]
	c.Status = model.CancellationFailed
	c.Attempts++
	c.LastError = &reason
	return nil
}

func (r *memoryCancellations) ListRetryable(_ context.Context, maxAttempts int, pendingBefore time.Time) ([]*model.SubscriptionCancellation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.SubscriptionCancellation
	for _, c := range r.s.cancellations {
		if c.Attempts >= maxAttempts {
			continue
		}
		if c.Status == model.CancellationFailed ||
			(c.Status == model.CancellationPending && c.CreatedAt.Before(pendingBefore)) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// recordingPublisher captures published ledger events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []interface{}
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, message)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
