package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pocket/internal/core"
	"pocket/internal/log"
	"pocket/internal/metrics"
	"pocket/internal/stats"
	"pocket/internal/storage"
)

// PayoutService manages money owed to or by other people.
type PayoutService struct {
	storage *storage.SQLiteRepository
	metrics *metrics.Metrics
	now     Clock
}

func NewPayoutService(storage *storage.SQLiteRepository, m *metrics.Metrics, now Clock) *PayoutService {
	if now == nil {
		now = LocalClock(nil)
	}
	return &PayoutService{storage: storage, metrics: m, now: now}
}

// Create stores a payout, linking it to the person of the same name or a
// new one. A missing status means pending.
func (s *PayoutService) Create(ctx context.Context, p core.Payout) (core.Payout, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return core.Payout{}, err
	}
	p.PersonName = strings.TrimSpace(p.PersonName)
	if p.Status == "" {
		p.Status = core.PayoutPending
	}
	if err := p.Validate(); err != nil {
		return core.Payout{}, err
	}
	p.UserID = userID
	p.PaidAt = s.paidAt(p)

	created, err := s.storage.CreatePayout(ctx, p)
	if err != nil {
		return core.Payout{}, fmt.Errorf("create payout: %w", translate(err))
	}
	s.metrics.RecordChange(storage.EntityPayout, log.OpCreate)
	log.LogRecordChange(ctx, log.OpCreate, storage.EntityPayout, created.ID, userID)
	return created, nil
}

func (s *PayoutService) Update(ctx context.Context, p core.Payout) (core.Payout, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return core.Payout{}, err
	}
	p.PersonName = strings.TrimSpace(p.PersonName)
	if p.Status == "" {
		p.Status = core.PayoutPending
	}
	if err := p.Validate(); err != nil {
		return core.Payout{}, err
	}
	p.UserID = userID
	p.PaidAt = s.paidAt(p)
	return s.save(ctx, p, log.OpUpdate)
}

func (s *PayoutService) Delete(ctx context.Context, id string) error {
	userID, err := requireUser(ctx)
	if err != nil {
		return err
	}
	if err := s.storage.DeletePayout(ctx, userID, id); err != nil {
		return fmt.Errorf("delete payout: %w", translate(err))
	}
	s.metrics.RecordChange(storage.EntityPayout, log.OpDelete)
	log.LogRecordChange(ctx, log.OpDelete, storage.EntityPayout, id, userID)
	return nil
}

func (s *PayoutService) Get(ctx context.Context, id string) (core.Payout, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return core.Payout{}, err
	}
	p, err := s.storage.GetPayout(ctx, userID, id)
	if err != nil {
		return core.Payout{}, translate(err)
	}
	return p, nil
}

func (s *PayoutService) List(ctx context.Context) ([]core.Payout, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	payouts, err := s.storage.ListPayouts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	return payouts, nil
}

// Resolve marks a pending payout as paid or received, depending on its type.
func (s *PayoutService) Resolve(ctx context.Context, id string) (core.Payout, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return core.Payout{}, err
	}
	if p.Status != core.PayoutPending {
		return core.Payout{}, fmt.Errorf("%w: %s payout cannot be resolved", core.ErrInvalidTransition, p.Status)
	}
	p.Status = p.ResolvedStatus()
	p.PaidAt = s.paidAt(p)
	return s.save(ctx, p, log.OpResolve)
}

// Cancel withdraws a pending payout.
func (s *PayoutService) Cancel(ctx context.Context, id string) (core.Payout, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return core.Payout{}, err
	}
	if p.Status != core.PayoutPending {
		return core.Payout{}, fmt.Errorf("%w: %s payout cannot be cancelled", core.ErrInvalidTransition, p.Status)
	}
	p.Status = core.PayoutCancelled
	p.PaidAt = nil
	return s.save(ctx, p, log.OpUpdate)
}

func (s *PayoutService) Stats(ctx context.Context) (stats.PayoutStats, error) {
	payouts, err := s.List(ctx)
	if err != nil {
		return stats.PayoutStats{}, err
	}
	return stats.SummarizePayouts(payouts), nil
}

// People returns per-person pending balances for people with payouts.
func (s *PayoutService) People(ctx context.Context) ([]stats.PersonSummary, error) {
	people, payouts, err := s.peopleAndPayouts(ctx)
	if err != nil {
		return nil, err
	}
	return stats.SummarizePeople(people, payouts), nil
}

// PeopleBalances returns every person with derived totals recomputed.
func (s *PayoutService) PeopleBalances(ctx context.Context) ([]core.Person, error) {
	people, payouts, err := s.peopleAndPayouts(ctx)
	if err != nil {
		return nil, err
	}
	return stats.PeopleWithBalances(people, payouts), nil
}

func (s *PayoutService) peopleAndPayouts(ctx context.Context) ([]core.Person, []core.Payout, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, nil, err
	}
	people, err := s.storage.ListPeople(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list people: %w", err)
	}
	payouts, err := s.storage.ListPayouts(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list payouts: %w", err)
	}
	return people, payouts, nil
}

func (s *PayoutService) save(ctx context.Context, p core.Payout, op string) (core.Payout, error) {
	updated, err := s.storage.UpdatePayout(ctx, p)
	if err != nil {
		return core.Payout{}, fmt.Errorf("update payout: %w", translate(err))
	}
	s.metrics.RecordChange(storage.EntityPayout, op)
	log.LogRecordChange(ctx, op, storage.EntityPayout, updated.ID, updated.UserID)
	return updated, nil
}

// paidAt keeps the settlement time only while the payout is resolved.
func (s *PayoutService) paidAt(p core.Payout) *time.Time {
	if !p.IsResolved() {
		return nil
	}
	if p.PaidAt != nil {
		return p.PaidAt
	}
	now := s.now()
	return &now
}
