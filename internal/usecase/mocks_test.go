//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"media-subscription-platform/internal/domain"
	"media-subscription-platform/internal/domain/model"
	"media-subscription-platform/internal/domain/ports/adapter"
	"media-subscription-platform/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func now() time.Time { return time.Now().Truncate(time.Millisecond) }

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// =============================
// Repositories
// =============================

// ---- Mock SubscriptionRepository ----

type MockSubscriptionRepo struct {
	mu    sync.Mutex
	data  map[string]*model.Subscription // by id
	order []string                       // insertion order, backs FindLatestByUser

	SaveFunc   func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
	DeleteFunc func(ctx context.Context, tx repository.Tx, id string) error
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]*model.Subscription{}}
}

func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, s)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if _, ok := r.data[s.ID]; !ok {
		r.order = append(r.order, s.ID)
	}
	cp := *s
	r.data[s.ID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.data[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) FindLatestByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.order) - 1; i >= 0; i-- {
		if s := r.data[r.order[i]]; s != nil && s.UserID == userID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, offset, limit int) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*model.Subscription
	for i := len(r.order) - 1; i >= 0; i-- {
		if s := r.data[r.order[i]]; s != nil && s.UserID == userID {
			cp := *s
			all = append(all, &cp)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MockSubscriptionRepo) ListPendingWithPaymentRef(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, id := range r.order {
		s := r.data[id]
		if s != nil && s.UserID == userID && s.Status == model.SubscriptionStatusPending && s.PaymentRef != nil {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockSubscriptionRepo) ListStalePending(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, id := range r.order {
		s := r.data[id]
		if s == nil || s.Status != model.SubscriptionStatusPending || s.PaymentRef == nil {
			continue
		}
		if !s.CreatedAt.Before(olderThan) {
			continue
		}
		cp := *s
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MockSubscriptionRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Subscription, 0, len(r.order))
	for _, id := range r.order {
		if s := r.data[id]; s != nil {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockSubscriptionRepo) ListActiveEndingOn(ctx context.Context, tx repository.Tx, day time.Time) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, id := range r.order {
		s := r.data[id]
		if s != nil && s.Status == model.SubscriptionStatusActive && sameDay(s.EndAt, day) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockSubscriptionRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	if r.DeleteFunc != nil {
		return r.DeleteFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MockSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[model.SubscriptionStatus]int)
	for _, s := range r.data {
		counts[s.Status]++
	}
	return counts, nil
}

// ---- Mock PlanRepository ----

type MockPlanRepo struct {
	mu   sync.Mutex
	data map[string]*model.Plan
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo(plans ...*model.Plan) *MockPlanRepo {
	r := &MockPlanRepo{data: map[string]*model.Plan{}}
	for _, p := range plans {
		cp := *p
		r.data[p.ID] = &cp
	}
	return r
}

func (r *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *plan
	r.data[plan.ID] = &cp
	return nil
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Plan, 0, len(r.data))
	for _, p := range r.data {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MockPlanRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, id)
	return nil
}

// ---- Mock RedeemRepository ----

type MockRedeemRepo struct {
	mu     sync.Mutex
	codes  map[string]*model.RedeemCode // by id
	claims map[string]*model.UserRedeem // by id

	SaveCodeFunc func(ctx context.Context, tx repository.Tx, code *model.RedeemCode) error
}

var _ repository.RedeemRepository = (*MockRedeemRepo)(nil)

func NewMockRedeemRepo() *MockRedeemRepo {
	return &MockRedeemRepo{
		codes:  map[string]*model.RedeemCode{},
		claims: map[string]*model.UserRedeem{},
	}
}

func (r *MockRedeemRepo) SaveCode(ctx context.Context, tx repository.Tx, code *model.RedeemCode) error {
	if r.SaveCodeFunc != nil {
		return r.SaveCodeFunc(ctx, tx, code)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.Code == code.Code && c.ID != code.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *code
	r.codes[code.ID] = &cp
	return nil
}

func (r *MockRedeemRepo) FindCodeByValue(ctx context.Context, tx repository.Tx, code string) (*model.RedeemCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockRedeemRepo) FindCodeByID(ctx context.Context, tx repository.Tx, id string) (*model.RedeemCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.codes[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockRedeemRepo) SetCodeActive(ctx context.Context, tx repository.Tx, id string, active bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok {
		return false, nil
	}
	c.IsActive = active
	return true, nil
}

func (r *MockRedeemRepo) IncrementApplyCount(ctx context.Context, tx repository.Tx, id string, by int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.NoOfApply += by
	return nil
}

func (r *MockRedeemRepo) SaveUserRedeem(ctx context.Context, tx repository.Tx, ur *model.UserRedeem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.claims {
		if c.UserID == ur.UserID && c.RedeemID == ur.RedeemID && c.ID != ur.ID {
			return domain.ErrAlreadyRedeemed
		}
	}
	cp := *ur
	r.claims[ur.ID] = &cp
	return nil
}

func (r *MockRedeemRepo) FindUserRedeem(ctx context.Context, tx repository.Tx, userID, redeemID string) (*model.UserRedeem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.claims {
		if c.UserID == userID && c.RedeemID == redeemID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockRedeemRepo) ListClaimsBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string, notStatus model.UserRedeemStatus) ([]*model.UserRedeem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.UserRedeem
	for _, c := range r.claims {
		if c.SubscriptionID != nil && *c.SubscriptionID == subscriptionID && c.Status != notStatus {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockRedeemRepo) UpdateUserRedeemStatus(ctx context.Context, tx repository.Tx, id string, status model.UserRedeemStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Status = status
	return nil
}

func (r *MockRedeemRepo) HasActiveBenefit(ctx context.Context, tx repository.Tx, userID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cl := range r.claims {
		if cl.UserID != userID || cl.Status != model.UserRedeemStatusActive {
			continue
		}
		c, ok := r.codes[cl.RedeemID]
		if !ok || !c.IsActive || c.Expired(at) {
			continue
		}
		if c.BenefitEndMonth != nil && c.BenefitEndMonth.Before(at) {
			continue
		}
		return true, nil
	}
	return false, nil
}

// ---- Mock NotificationLogRepository ----

type MockNotificationLog struct {
	mu   sync.Mutex
	seen map[string]bool // subscriptionID|kind|thresholdDays
}

var _ repository.NotificationLogRepository = (*MockNotificationLog)(nil)

func NewMockNotificationLog() *MockNotificationLog {
	return &MockNotificationLog{seen: map[string]bool{}}
}

func notifKey(subID, kind string, days int) string {
	return fmt.Sprintf("%s|%s|%d", subID, kind, days)
}

func (r *MockNotificationLog) Save(ctx context.Context, tx repository.Tx, subscriptionID, userID, kind string, thresholdDays int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := notifKey(subscriptionID, kind, thresholdDays)
	if r.seen[k] {
		return domain.ErrAlreadyExists
	}
	r.seen[k] = true
	return nil
}

func (r *MockNotificationLog) Exists(ctx context.Context, tx repository.Tx, subscriptionID, kind string, thresholdDays int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[notifKey(subscriptionID, kind, thresholdDays)], nil
}

// ---- Mock ArticleRepository / AdRepository ----

type MockArticleRepo struct {
	mu   sync.Mutex
	data map[string]*model.Article

	PublishDueFunc func(ctx context.Context, tx repository.Tx, now time.Time) (int64, error)
}

var _ repository.ArticleRepository = (*MockArticleRepo)(nil)

func NewMockArticleRepo() *MockArticleRepo {
	return &MockArticleRepo{data: map[string]*model.Article{}}
}

func (r *MockArticleRepo) Save(ctx context.Context, tx repository.Tx, a *model.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.data[a.ID] = &cp
	return nil
}

func (r *MockArticleRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.data[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockArticleRepo) PublishDue(ctx context.Context, tx repository.Tx, at time.Time) (int64, error) {
	if r.PublishDueFunc != nil {
		return r.PublishDueFunc(ctx, tx, at)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.data {
		if a.Status == model.ArticleStatusScheduled && a.PublishAt != nil && !a.PublishAt.After(at) {
			a.Status = model.ArticleStatusPublished
			n++
		}
	}
	return n, nil
}

type MockAdRepo struct {
	mu   sync.Mutex
	data map[string]*model.Ad
}

var _ repository.AdRepository = (*MockAdRepo)(nil)

func NewMockAdRepo() *MockAdRepo {
	return &MockAdRepo{data: map[string]*model.Ad{}}
}

func (r *MockAdRepo) Save(ctx context.Context, tx repository.Tx, ad *model.Ad) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ad
	r.data[ad.ID] = &cp
	return nil
}

func (r *MockAdRepo) ExpireEndedBefore(ctx context.Context, tx repository.Tx, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, ad := range r.data {
		if ad.Status == model.AdStatusActive && ad.EndAt.Before(at) {
			ad.Status = model.AdStatusExpired
			n++
		}
	}
	return n, nil
}

// =============================
// Adapters
// =============================

// ---- Mock StatusGateway ----

type MockGateway struct {
	mu       sync.Mutex
	Verdicts map[string]adapter.Verdict // by payment ref
	Errs     map[string]error
	Calls    []string
}

var _ adapter.StatusGateway = (*MockGateway)(nil)

func NewMockGateway() *MockGateway {
	return &MockGateway{Verdicts: map[string]adapter.Verdict{}, Errs: map[string]error{}}
}

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) QueryStatus(ctx context.Context, paymentRef string) (adapter.Verdict, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls = append(g.Calls, paymentRef)
	if err, ok := g.Errs[paymentRef]; ok {
		return adapter.Verdict{State: adapter.SettlementUnknown}, err
	}
	if v, ok := g.Verdicts[paymentRef]; ok {
		return v, nil
	}
	return adapter.Verdict{State: adapter.SettlementUnknown}, nil
}

// ---- Mock Notifier ----

type sentNote struct {
	Target model.NotifyTarget
	Msg    model.Message
}

type MockNotifier struct {
	mu   sync.Mutex
	Sent []sentNote

	NotifyFunc func(ctx context.Context, target model.NotifyTarget, msg model.Message) error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (n *MockNotifier) Name() string { return "mock" }

func (n *MockNotifier) Notify(ctx context.Context, target model.NotifyTarget, msg model.Message) error {
	if n.NotifyFunc != nil {
		return n.NotifyFunc(ctx, target, msg)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, sentNote{Target: target, Msg: msg})
	return nil
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs the callback with a nil tx, which repositories treat as the
// non-transactional path. Assign WithTxFunc to exercise rollback behavior.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}
