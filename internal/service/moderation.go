package service

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/colsp-platform/colsp/internal/domain"
	"github.com/colsp-platform/colsp/internal/extract"
)

// Weighted-gate coefficients. The attachment term carries the same weight
// as the description term because uploaded evidence is as likely to carry
// the violating content as the free text.
const (
	titleToxicityWeight       = 0.2
	descriptionToxicityWeight = 0.4
	attachmentWeight          = 0.4
)

// ContentScorer defines the classifier oracle interface
type ContentScorer interface {
	DetectGambling(ctx context.Context, text string) domain.Score
	DetectToxicity(ctx context.Context, text string) domain.Score
	DetectImageNSFW(ctx context.Context, image []byte) domain.Score
}

// Translator normalizes submission text to English before classification.
type Translator interface {
	ToEnglish(ctx context.Context, text string) string
}

// Attachment is the uploaded evidence accompanying a report, already
// buffered in memory by the transport layer.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Decision is the terminal outcome of a screening run. Reason is set only
// when Allowed is false.
type Decision struct {
	Allowed bool
	Reason  string
}

// ModerationConfig carries the policy knobs for the two gates.
type ModerationConfig struct {
	GamblingThreshold  float64
	ViolationThreshold float64
	// FailOpen makes an unavailable classifier contribute 0.0 to its
	// term instead of aborting the submission.
	FailOpen bool
}

// ModerationService screens report submissions through two sequential
// gates: a fail-fast gambling gate, then a weighted toxicity/NSFW gate.
// Sub-scores within a gate are independent and fetched concurrently.
type ModerationService struct {
	scorer     ContentScorer
	translator Translator
	cfg        ModerationConfig
}

// NewModerationService creates a new ModerationService instance
func NewModerationService(scorer ContentScorer, translator Translator, cfg ModerationConfig) *ModerationService {
	return &ModerationService{
		scorer:     scorer,
		translator: translator,
		cfg:        cfg,
	}
}

// Screen runs both gates over the submission. The returned error is
// non-nil only for system failures (an unavailable classifier under
// fail-closed policy); content rejections come back as a Decision.
func (s *ModerationService) Screen(ctx context.Context, title, description string, attachment *Attachment) (Decision, error) {
	var titleEN, descriptionEN string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		titleEN = s.translator.ToEnglish(gctx, title)
		return nil
	})
	g.Go(func() error {
		descriptionEN = s.translator.ToEnglish(gctx, description)
		return nil
	})
	_ = g.Wait()

	var titleGambling, descriptionGambling domain.Score
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		titleGambling = s.scoreText(gctx, s.scorer.DetectGambling, titleEN)
		return nil
	})
	g.Go(func() error {
		descriptionGambling = s.scoreText(gctx, s.scorer.DetectGambling, descriptionEN)
		return nil
	})
	_ = g.Wait()

	titleG, err := s.resolve(titleGambling)
	if err != nil {
		return Decision{}, err
	}
	descriptionG, err := s.resolve(descriptionGambling)
	if err != nil {
		return Decision{}, err
	}
	if titleG+descriptionG > s.cfg.GamblingThreshold {
		return Decision{Reason: domain.RejectionReasonGambling}, nil
	}

	var titleToxicity, descriptionToxicity, attachmentScore domain.Score
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		titleToxicity = s.scoreText(gctx, s.scorer.DetectToxicity, titleEN)
		return nil
	})
	g.Go(func() error {
		descriptionToxicity = s.scoreText(gctx, s.scorer.DetectToxicity, descriptionEN)
		return nil
	})
	g.Go(func() error {
		attachmentScore = s.scoreAttachment(gctx, attachment)
		return nil
	})
	_ = g.Wait()

	titleT, err := s.resolve(titleToxicity)
	if err != nil {
		return Decision{}, err
	}
	descriptionT, err := s.resolve(descriptionToxicity)
	if err != nil {
		return Decision{}, err
	}
	attachmentT, err := s.resolve(attachmentScore)
	if err != nil {
		return Decision{}, err
	}

	weighted := titleToxicityWeight*titleT +
		descriptionToxicityWeight*descriptionT +
		attachmentWeight*attachmentT
	if weighted > s.cfg.ViolationThreshold {
		return Decision{Reason: domain.RejectionReasonViolation}, nil
	}

	return Decision{Allowed: true}, nil
}

// scoreText guards the classifier against empty input, which contributes a
// hard zero rather than an oracle round-trip.
func (s *ModerationService) scoreText(ctx context.Context, detect func(context.Context, string) domain.Score, text string) domain.Score {
	if strings.TrimSpace(text) == "" {
		return domain.ScoreOf(0)
	}
	return detect(ctx, text)
}

// scoreAttachment maps the attachment to its classifier. Images go through
// NSFW detection; text-bearing documents have their text extracted and
// scored for toxicity; anything else (or a missing attachment) is a zero.
func (s *ModerationService) scoreAttachment(ctx context.Context, attachment *Attachment) domain.Score {
	if attachment == nil || len(attachment.Data) == 0 {
		return domain.ScoreOf(0)
	}
	if strings.HasPrefix(attachment.ContentType, "image/") {
		return s.scorer.DetectImageNSFW(ctx, attachment.Data)
	}
	if extract.SupportsFilename(attachment.Filename) {
		text := extract.FromUpload(attachment.Filename, bytes.NewReader(attachment.Data))
		if text == "" {
			return domain.ScoreOf(0)
		}
		return s.scorer.DetectToxicity(ctx, text)
	}
	return domain.ScoreOf(0)
}

func (s *ModerationService) resolve(score domain.Score) (float64, error) {
	if score.OK {
		return score.Value, nil
	}
	if s.cfg.FailOpen {
		return 0, nil
	}
	return 0, domain.ErrOracleUnavailable
}
