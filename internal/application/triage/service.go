package triage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aulianza/mindsignal/internal/application"
	"github.com/aulianza/mindsignal/internal/domain/analysis"
	domain "github.com/aulianza/mindsignal/internal/domain/triage"
	"github.com/aulianza/mindsignal/internal/domain/viewer"
)

// Service implements the escalation router and the queue operations the
// administrative dashboard consumes.
type Service struct {
	Repo  domain.Repository
	Clock application.Clock
	Log   *zap.Logger

	// Per-subject locks serialize the read-modify-write on that subject's
	// active entry. Two concurrent High results must update one entry,
	// not create two.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (s *Service) subjectLock(tenant, subject string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks == nil {
		s.locks = make(map[string]*sync.Mutex)
	}
	key := tenant + "/" + subject
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Escalate records a High/Critical result against the subject's active
// triage entry, creating one when no open window exists. Tier only moves
// upward on update; a calmer follow-up never softens an open case, and
// nothing here ever auto-resolves — closing is a human decision.
func (s *Service) Escalate(ctx context.Context, tenant, subject string, a analysis.CompositeAssessment, tier analysis.RiskTier) (*domain.Entry, error) {
	l := s.subjectLock(tenant, subject)
	l.Lock()
	defer l.Unlock()

	now := s.Clock.Now()

	existing, err := s.Repo.FindActiveBySubject(ctx, tenant, subject)
	if err != nil {
		return nil, fmt.Errorf("triage lookup: %w", err)
	}

	if existing != nil {
		existing.Assessment = a
		if tier > existing.Tier {
			existing.Tier = tier
			existing.TierLabel = tier.String()
		}
		existing.UpdatedAt = now
		if err := s.Repo.Save(ctx, existing); err != nil {
			return nil, fmt.Errorf("triage update: %w", err)
		}
		s.Log.Info("triage entry updated",
			zap.String("tenant", tenant),
			zap.String("entry", string(existing.ID)),
			zap.String("tier", existing.TierLabel),
		)
		return existing, nil
	}

	entry := &domain.Entry{
		ID:         domain.EntryID(fmt.Sprintf("%s-triage", uuid.New().String())),
		TenantID:   tenant,
		SubjectID:  subject,
		Assessment: a,
		Tier:       tier,
		TierLabel:  tier.String(),
		Status:     domain.StatusOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Repo.Save(ctx, entry); err != nil {
		return nil, fmt.Errorf("triage create: %w", err)
	}
	s.Log.Info("triage entry opened",
		zap.String("tenant", tenant),
		zap.String("entry", string(entry.ID)),
		zap.String("tier", entry.TierLabel),
	)
	return entry, nil
}

// Queue lists open/acknowledged entries for the dashboard, ordered by tier
// then creation time. Gated: students and peers never see queue contents.
func (s *Service) Queue(ctx context.Context, vc viewer.Context, tenant string, limit int) ([]*domain.Entry, error) {
	if !vc.CanViewTriage() {
		return nil, viewer.ErrForbidden
	}
	return s.Repo.ListActive(ctx, tenant, limit)
}

// UpdateStatus moves an entry to acknowledged/resolved on behalf of staff.
// Reopening is not a dashboard operation.
func (s *Service) UpdateStatus(ctx context.Context, vc viewer.Context, tenant string, id domain.EntryID, status domain.Status) error {
	if !vc.CanUpdateTriage() {
		return viewer.ErrForbidden
	}
	if status != domain.StatusAcknowledged && status != domain.StatusResolved {
		return fmt.Errorf("invalid target status: %s", status)
	}
	if err := s.Repo.UpdateStatus(ctx, tenant, id, status); err != nil {
		return err
	}
	s.Log.Info("triage status changed",
		zap.String("tenant", tenant),
		zap.String("entry", string(id)),
		zap.String("status", string(status)),
	)
	return nil
}
