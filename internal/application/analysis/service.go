package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aulianza/mindsignal/internal/application"
	"github.com/aulianza/mindsignal/internal/config"
	domain "github.com/aulianza/mindsignal/internal/domain/analysis"
	"github.com/aulianza/mindsignal/internal/domain/triage"
)

// Escalator is the hand-off into the triage queue for High/Critical tiers.
type Escalator interface {
	Escalate(ctx context.Context, tenant, subject string, a domain.CompositeAssessment, tier domain.RiskTier) (*triage.Entry, error)
}

// Service implements the analysis use-case: fan out to the modality
// analyzers that have input, fuse whatever survives, classify, recommend,
// and escalate. Safe for concurrent use; requests share no mutable state.
type Service struct {
	Analyzers   map[domain.Modality]domain.Analyzer
	Fuser       *Fuser
	Classifier  *Classifier
	Recommender *Recommender
	Escalator   Escalator
	Results     domain.Repository
	Clock       application.Clock
	Policy      config.Policy
	Log         *zap.Logger
}

// outcome of one launched analyzer
type analyzerOutcome struct {
	modality domain.Modality
	finding  domain.ModalityFinding
	err      error
}

// Analyze runs the full pipeline for one check-in.
//
// Every launched analyzer gets to finish or time out; a single failure never
// aborts the request because partial signal still has value. Only two
// request-level errors exist on the input side: ErrInputInvalid (nothing to
// analyze) and ErrAllAnalyzersFailed (nothing survived). An escalation write
// failure is also request-level: a High/Critical case must never be dropped
// without the caller knowing.
func (s *Service) Analyze(ctx context.Context, req *domain.AnalysisRequest) (*domain.AnalysisResult, error) {
	present := req.Present()
	if len(present) == 0 {
		return nil, domain.ErrInputInvalid
	}
	start := s.Clock.Now()
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = start
	}

	log := s.Log.With(
		zap.String("tenant", req.TenantID),
		zap.String("subject", req.SubjectID),
		zap.Int("modalities", len(present)),
	)

	findings, outcomes := s.fanOut(ctx, req, present)
	if len(findings) == 0 {
		log.Warn("analysis failed, no analyzer succeeded")
		return nil, domain.ErrAllAnalyzersFailed
	}

	var missing []domain.Modality
	for _, o := range outcomes {
		if !o.OK {
			missing = append(missing, o.Modality)
		}
	}

	assessment := s.Fuser.Fuse(findings, missing)
	tier, extra := s.Classifier.Classify(&assessment)
	assessment.Annotations = mergeAnnotations(assessment.Annotations, extra)
	recs := s.Recommender.Recommend(&assessment, tier)

	res := &domain.AnalysisResult{
		ID:          domain.AnalysisID(fmt.Sprintf("%s-checkin", uuid.New().String())),
		TenantID:    req.TenantID,
		SubjectID:   req.SubjectID,
		SubmittedAt: req.SubmittedAt,
		Assessment:  assessment,
		Tier:        tier,
		TierLabel:   tier.String(),
		Recommended: recs,
		Outcomes:    outcomes,
	}

	if tier >= domain.TierHigh {
		entry, err := s.Escalator.Escalate(ctx, req.TenantID, req.SubjectID, assessment, tier)
		if err != nil {
			log.Error("escalation write failed", zap.String("tier", tier.String()), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", domain.ErrEscalationFailed, err)
		}
		res.Escalated = true
		res.TriageEntryID = string(entry.ID)
	}

	res.DurationMS = s.Clock.Now().Sub(start).Milliseconds()

	// Append-only history write; the result itself is already complete.
	if err := s.Results.Save(ctx, res); err != nil {
		log.Error("result store write failed", zap.Error(err))
		return nil, fmt.Errorf("result store: %w", err)
	}

	log.Info("analysis done",
		zap.String("tier", tier.String()),
		zap.Float64("confidence", assessment.Confidence),
		zap.Bool("escalated", res.Escalated),
		zap.Int64("duration_ms", res.DurationMS),
	)
	return res, nil
}

// Latest returns recent results for the tenant's history views.
func (s *Service) Latest(ctx context.Context, tenant string, limit int) ([]*domain.AnalysisResult, error) {
	return s.Results.Latest(ctx, tenant, limit)
}

// fanOut launches one goroutine per present modality and collects every
// outcome under the overall deadline. Analyzers enforce their own
// per-modality timeouts; the outer deadline only caps the whole fan-out, and
// an analyzer cancelled by it is recorded as a timeout. Results arriving
// after the deadline are received here and discarded, never leaked.
func (s *Service) fanOut(ctx context.Context, req *domain.AnalysisRequest, present []domain.Modality) ([]domain.ModalityFinding, []domain.ModalityOutcome) {
	ctx, cancel := context.WithTimeout(ctx, s.Policy.OverallDeadline.Std())
	defer cancel()

	// Buffered to len(present): a straggler that outlives the deadline can
	// still complete its send and be garbage collected, never leaked.
	ch := make(chan analyzerOutcome, len(present))
	pending := make(map[domain.Modality]bool, len(present))
	var outcomes []domain.ModalityOutcome

	for _, m := range present {
		an, ok := s.Analyzers[m]
		if !ok {
			// No adapter wired for a supplied modality; count it as
			// unavailable rather than dropping it silently.
			outcomes = append(outcomes, domain.ModalityOutcome{
				Modality: m, Reason: domain.ReasonUnavailable,
			})
			continue
		}
		pending[m] = true
		go func() {
			f, err := an.Analyze(ctx, req)
			ch <- analyzerOutcome{modality: an.Modality(), finding: f, err: err}
		}()
	}

	var findings []domain.ModalityFinding
	record := func(out analyzerOutcome) {
		delete(pending, out.modality)
		if out.err != nil {
			outcomes = append(outcomes, domain.ModalityOutcome{
				Modality: out.modality,
				Reason:   failureReason(out.err),
			})
			s.Log.Warn("modality analyzer failed",
				zap.String("modality", string(out.modality)),
				zap.Error(out.err),
			)
			return
		}
		findings = append(findings, out.finding)
		outcomes = append(outcomes, domain.ModalityOutcome{Modality: out.modality, OK: true})
	}

	for len(pending) > 0 {
		select {
		case out := <-ch:
			record(out)
		case <-ctx.Done():
			// Drain whatever finished in the same instant, then give up
			// on the rest: stragglers count as timeouts and their
			// eventual results are discarded with the channel.
			for len(pending) > 0 {
				select {
				case out := <-ch:
					record(out)
				default:
					for m := range pending {
						outcomes = append(outcomes, domain.ModalityOutcome{
							Modality: m, Reason: domain.ReasonTimeout,
						})
						delete(pending, m)
					}
				}
			}
		}
	}
	return findings, outcomes
}

func failureReason(err error) domain.FailureReason {
	var ae *domain.AnalyzerError
	if errors.As(err, &ae) {
		return ae.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.ReasonTimeout
	}
	return domain.ReasonUnavailable
}

func mergeAnnotations(base, extra []string) []string {
	for _, e := range extra {
		dup := false
		for _, b := range base {
			if b == e {
				dup = true
				break
			}
		}
		if !dup {
			base = append(base, e)
		}
	}
	return base
}
