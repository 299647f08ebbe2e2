//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"media-subscription-platform/internal/domain"
	"media-subscription-platform/internal/domain/model"
	"media-subscription-platform/internal/domain/ports/adapter"
	"media-subscription-platform/internal/domain/ports/repository"
	"media-subscription-platform/internal/usecase"
)

func monthlyPlan() *model.Plan {
	return &model.Plan{
		ID:            "plan-monthly",
		Name:          "Monthly",
		Price:         39900,
		IntervalValue: 1,
		IntervalUnit:  model.IntervalMonth,
	}
}

type subFixture struct {
	subs    *MockSubscriptionRepo
	plans   *MockPlanRepo
	redeems *MockRedeemRepo
	gateway *MockGateway
	uc      usecase.SubscriptionUseCase
	ledger  usecase.RedeemLedger
}

func newSubFixture(t *testing.T) *subFixture {
	t.Helper()
	f := &subFixture{
		subs:    NewMockSubscriptionRepo(),
		plans:   NewMockPlanRepo(monthlyPlan()),
		redeems: NewMockRedeemRepo(),
		gateway: NewMockGateway(),
	}
	tm := NewMockTxManager()
	log := newTestLogger()
	f.ledger = usecase.NewRedeemLedger(f.redeems, tm, log)
	f.uc = usecase.NewSubscriptionUseCase(f.subs, f.plans, f.ledger, f.gateway, tm, log)
	return f
}

func strPtr(s string) *string { return &s }

func TestSubscriptionUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("should create a pending record with the plan-derived period and amount", func(t *testing.T) {
		f := newSubFixture(t)
		start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

		sub, msg, err := f.uc.Create(ctx, usecase.CreateSubscriptionInput{
			UserID:     "user-1",
			PlanID:     "plan-monthly",
			PaymentRef: strPtr("txn-100"),
			StartAt:    &start,
		})
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if sub.Status != model.SubscriptionStatusPending {
			t.Errorf("expected pending, got %q", sub.Status)
		}
		wantEnd := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
		if !sub.EndAt.Equal(wantEnd) {
			t.Errorf("expected end %v, got %v", wantEnd, sub.EndAt)
		}
		if sub.Amount != 39900 {
			t.Errorf("expected amount copied from plan, got %d", sub.Amount)
		}
		if msg == "" {
			t.Error("expected a creation message")
		}
		if _, err := f.subs.FindByID(ctx, repository.NoTX, sub.ID); err != nil {
			t.Errorf("expected row persisted: %v", err)
		}
	})

	t.Run("should claim a redeem code inside the same unit of work", func(t *testing.T) {
		f := newSubFixture(t)
		rc, err := f.ledger.Generate(ctx, "issuer", nil)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}

		sub, msg, err := f.uc.Create(ctx, usecase.CreateSubscriptionInput{
			UserID:     "reader-1",
			PlanID:     "plan-monthly",
			RedeemCode: &rc.Code,
		})
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if sub.RedeemID == nil || *sub.RedeemID != rc.ID {
			t.Errorf("expected redeem link on the subscription, got %v", sub.RedeemID)
		}
		if sub.Redeem == nil {
			t.Error("expected hydrated redeem relation")
		}
		if msg != "subscription created via redeem code" {
			t.Errorf("unexpected message %q", msg)
		}
		claim, err := f.redeems.FindUserRedeem(ctx, repository.NoTX, "reader-1", rc.ID)
		if err != nil {
			t.Fatalf("expected a claim: %v", err)
		}
		if claim.SubscriptionID == nil || *claim.SubscriptionID != sub.ID {
			t.Errorf("expected claim bound to subscription, got %v", claim.SubscriptionID)
		}
		if claim.Status != model.UserRedeemStatusPending {
			t.Errorf("expected pending claim until payment settles, got %q", claim.Status)
		}
	})

	t.Run("should not persist the subscription when the code claim fails", func(t *testing.T) {
		f := newSubFixture(t)
		rc, _ := f.ledger.Generate(ctx, "issuer", nil)

		// Self-redeem fails the claim, so the whole creation must fail.
		_, _, err := f.uc.Create(ctx, usecase.CreateSubscriptionInput{
			UserID:     "issuer",
			PlanID:     "plan-monthly",
			RedeemCode: &rc.Code,
		})
		if !errors.Is(err, domain.ErrSelfRedeem) {
			t.Fatalf("expected ErrSelfRedeem, got: %v", err)
		}
		all, _ := f.subs.ListAll(ctx, repository.NoTX)
		if len(all) != 0 {
			t.Errorf("expected no subscription rows, got %d", len(all))
		}
	})

	t.Run("should require a payment reference or a redeem code", func(t *testing.T) {
		f := newSubFixture(t)
		_, _, err := f.uc.Create(ctx, usecase.CreateSubscriptionInput{
			UserID: "user-1",
			PlanID: "plan-monthly",
		})
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got: %v", err)
		}
	})

	t.Run("should reject an unknown plan", func(t *testing.T) {
		f := newSubFixture(t)
		_, _, err := f.uc.Create(ctx, usecase.CreateSubscriptionInput{
			UserID:     "user-1",
			PlanID:     "plan-nope",
			PaymentRef: strPtr("txn-1"),
		})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestSubscriptionUseCase_ReconcileUser(t *testing.T) {
	ctx := context.Background()

	seedPending := func(t *testing.T, f *subFixture, userID, ref string) *model.Subscription {
		t.Helper()
		sub, _, err := f.uc.Create(ctx, usecase.CreateSubscriptionInput{
			UserID:     userID,
			PlanID:     "plan-monthly",
			PaymentRef: strPtr(ref),
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		return sub
	}

	t.Run("completed verdict with matching amount activates and confirms the claim", func(t *testing.T) {
		f := newSubFixture(t)
		rc, _ := f.ledger.Generate(ctx, "issuer", nil)
		sub, _, err := f.uc.Create(ctx, usecase.CreateSubscriptionInput{
			UserID:     "reader-1",
			PlanID:     "plan-monthly",
			PaymentRef: strPtr("txn-1"),
			RedeemCode: &rc.Code,
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		f.gateway.Verdicts["txn-1"] = adapter.Verdict{State: adapter.SettlementCompleted, SettledAmount: 39900}

		actions, err := f.uc.ReconcileUser(ctx, "reader-1")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if len(actions) != 1 || actions[0].Action != usecase.ReconcileActivated {
			t.Fatalf("expected one activated action, got %+v", actions)
		}
		if actions[0].RunID == "" {
			t.Error("expected actions tagged with a run id")
		}
		stored, _ := f.subs.FindByID(ctx, repository.NoTX, sub.ID)
		if stored.Status != model.SubscriptionStatusActive {
			t.Errorf("expected active, got %q", stored.Status)
		}
		code, _ := f.redeems.FindCodeByID(ctx, repository.NoTX, rc.ID)
		if code.NoOfApply != 1 {
			t.Errorf("expected apply count bumped once, got %d", code.NoOfApply)
		}
		claim, _ := f.redeems.FindUserRedeem(ctx, repository.NoTX, "reader-1", rc.ID)
		if claim.Status != model.UserRedeemStatusActive {
			t.Errorf("expected active claim, got %q", claim.Status)
		}
	})

	t.Run("completed verdict with an amount mismatch leaves the record pending", func(t *testing.T) {
		f := newSubFixture(t)
		sub := seedPending(t, f, "user-1", "txn-2")
		f.gateway.Verdicts["txn-2"] = adapter.Verdict{State: adapter.SettlementCompleted, SettledAmount: 100}

		actions, err := f.uc.ReconcileUser(ctx, "user-1")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if len(actions) != 1 || actions[0].Action != usecase.ReconcileUnresolved {
			t.Fatalf("expected one unresolved action, got %+v", actions)
		}
		stored, _ := f.subs.FindByID(ctx, repository.NoTX, sub.ID)
		if stored.Status != model.SubscriptionStatusPending {
			t.Errorf("expected record untouched, got %q", stored.Status)
		}
	})

	t.Run("failed verdict deletes the pending record", func(t *testing.T) {
		f := newSubFixture(t)
		sub := seedPending(t, f, "user-1", "txn-3")
		f.gateway.Verdicts["txn-3"] = adapter.Verdict{State: adapter.SettlementFailed, ProviderCode: "PAYMENT_ERROR"}

		actions, err := f.uc.ReconcileUser(ctx, "user-1")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if len(actions) != 1 || actions[0].Action != usecase.ReconcileDeleted {
			t.Fatalf("expected one deleted action, got %+v", actions)
		}
		if _, err := f.subs.FindByID(ctx, repository.NoTX, sub.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected row gone, got: %v", err)
		}
	})

	t.Run("unknown verdict leaves the record for the next sweep", func(t *testing.T) {
		f := newSubFixture(t)
		sub := seedPending(t, f, "user-1", "txn-4")
		// No verdict configured: the gateway answers Unknown.

		actions, err := f.uc.ReconcileUser(ctx, "user-1")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if len(actions) != 1 || actions[0].Action != usecase.ReconcileUnresolved {
			t.Fatalf("expected one unresolved action, got %+v", actions)
		}
		stored, _ := f.subs.FindByID(ctx, repository.NoTX, sub.ID)
		if stored.Status != model.SubscriptionStatusPending {
			t.Errorf("expected record untouched, got %q", stored.Status)
		}
	})

	t.Run("one gateway failure never blocks the rest of the batch", func(t *testing.T) {
		f := newSubFixture(t)
		seedPending(t, f, "user-1", "txn-5")
		seedPending(t, f, "user-1", "txn-6")
		f.gateway.Errs["txn-5"] = errors.New("gateway timeout")
		f.gateway.Verdicts["txn-6"] = adapter.Verdict{State: adapter.SettlementCompleted, SettledAmount: 39900}

		actions, err := f.uc.ReconcileUser(ctx, "user-1")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if len(actions) != 2 {
			t.Fatalf("expected 2 actions, got %d", len(actions))
		}
		byRef := map[string]string{}
		for _, a := range actions {
			byRef[a.PaymentRef] = a.Action
		}
		if byRef["txn-5"] != usecase.ReconcileUnresolved {
			t.Errorf("expected txn-5 unresolved, got %q", byRef["txn-5"])
		}
		if byRef["txn-6"] != usecase.ReconcileActivated {
			t.Errorf("expected txn-6 activated, got %q", byRef["txn-6"])
		}
	})
}

func TestSubscriptionUseCase_SweepAll(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, f *subFixture, id string, status model.SubscriptionStatus, start, end time.Time) {
		t.Helper()
		err := f.subs.Save(ctx, repository.NoTX, &model.Subscription{
			ID: id, UserID: "u-" + id, PlanID: "plan-monthly",
			StartAt: start, EndAt: end, Status: status, CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	t.Run("aligns every non-cancelled record with the clock", func(t *testing.T) {
		f := newSubFixture(t)
		past := time.Now().AddDate(0, 0, -40)
		recent := time.Now().AddDate(0, 0, -5)
		future := time.Now().AddDate(0, 0, 25)

		seed(t, f, "in-window-pending", model.SubscriptionStatusPending, recent, future)
		seed(t, f, "past-active", model.SubscriptionStatusActive, past, past.AddDate(0, 1, 0))
		seed(t, f, "cancelled-in-window", model.SubscriptionStatusCancelled, recent, future)
		seed(t, f, "active-in-window", model.SubscriptionStatusActive, recent, future)

		changed, err := f.uc.SweepAll(ctx)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if changed != 2 {
			t.Errorf("expected 2 transitions, got %d", changed)
		}

		want := map[string]model.SubscriptionStatus{
			"in-window-pending":   model.SubscriptionStatusActive,
			"past-active":         model.SubscriptionStatusExpired,
			"cancelled-in-window": model.SubscriptionStatusCancelled,
			"active-in-window":    model.SubscriptionStatusActive,
		}
		for id, status := range want {
			got, _ := f.subs.FindByID(ctx, repository.NoTX, id)
			if got.Status != status {
				t.Errorf("%s: expected %q, got %q", id, status, got.Status)
			}
		}

		// Running it again changes nothing.
		changed, err = f.uc.SweepAll(ctx)
		if err != nil {
			t.Fatalf("second sweep: %v", err)
		}
		if changed != 0 {
			t.Errorf("expected idempotent sweep, got %d transitions", changed)
		}
	})

	t.Run("empty table is a no-op", func(t *testing.T) {
		f := newSubFixture(t)
		changed, err := f.uc.SweepAll(ctx)
		if err != nil || changed != 0 {
			t.Fatalf("expected clean no-op, got %d, %v", changed, err)
		}
	})
}

func TestSubscriptionUseCase_Queries(t *testing.T) {
	ctx := context.Background()

	t.Run("latest returns the most recent record with its plan", func(t *testing.T) {
		f := newSubFixture(t)
		_, _, _ = f.uc.Create(ctx, usecase.CreateSubscriptionInput{UserID: "user-1", PlanID: "plan-monthly", PaymentRef: strPtr("t1")})
		second, _, err := f.uc.Create(ctx, usecase.CreateSubscriptionInput{UserID: "user-1", PlanID: "plan-monthly", PaymentRef: strPtr("t2")})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}

		got, err := f.uc.Latest(ctx, "user-1")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if got.ID != second.ID {
			t.Errorf("expected latest %s, got %s", second.ID, got.ID)
		}
		if got.Plan == nil || got.Plan.Name != "Monthly" {
			t.Error("expected plan hydrated on the latest record")
		}
	})

	t.Run("history pages newest-first", func(t *testing.T) {
		f := newSubFixture(t)
		for _, ref := range []string{"t1", "t2", "t3"} {
			r := ref
			if _, _, err := f.uc.Create(ctx, usecase.CreateSubscriptionInput{UserID: "user-1", PlanID: "plan-monthly", PaymentRef: &r}); err != nil {
				t.Fatalf("seed: %v", err)
			}
		}
		page, err := f.uc.History(ctx, "user-1", 0, 2)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if len(page) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(page))
		}
		if *page[0].PaymentRef != "t3" || *page[1].PaymentRef != "t2" {
			t.Errorf("expected newest-first order, got %q then %q", *page[0].PaymentRef, *page[1].PaymentRef)
		}
	})

	t.Run("destroy removes an existing record and rejects unknown ids", func(t *testing.T) {
		f := newSubFixture(t)
		sub, _, _ := f.uc.Create(ctx, usecase.CreateSubscriptionInput{UserID: "user-1", PlanID: "plan-monthly", PaymentRef: strPtr("t1")})

		if err := f.uc.Destroy(ctx, sub.ID); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if err := f.uc.Destroy(ctx, sub.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound on repeat, got: %v", err)
		}
	})
}
