package service

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/colsp-platform/colsp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockContentScorer mocks the classifier oracle
type MockContentScorer struct {
	mock.Mock
}

func (m *MockContentScorer) DetectGambling(ctx context.Context, text string) domain.Score {
	args := m.Called(ctx, text)
	return args.Get(0).(domain.Score)
}

func (m *MockContentScorer) DetectToxicity(ctx context.Context, text string) domain.Score {
	args := m.Called(ctx, text)
	return args.Get(0).(domain.Score)
}

func (m *MockContentScorer) DetectImageNSFW(ctx context.Context, image []byte) domain.Score {
	args := m.Called(ctx, image)
	return args.Get(0).(domain.Score)
}

// passthroughTranslator returns its input unchanged, as the real
// translator does when the service is unreachable.
type passthroughTranslator struct{}

func (passthroughTranslator) ToEnglish(_ context.Context, text string) string { return text }

func defaultModerationConfig() ModerationConfig {
	return ModerationConfig{
		GamblingThreshold:  0.25,
		ViolationThreshold: 0.44,
		FailOpen:           true,
	}
}

func TestModerationService_Screen_CleanSubmissionPasses(t *testing.T) {
	scorer := new(MockContentScorer)
	svc := NewModerationService(scorer, passthroughTranslator{}, defaultModerationConfig())

	scorer.On("DetectGambling", mock.Anything, mock.Anything).Return(domain.ScoreOf(0.01))
	scorer.On("DetectToxicity", mock.Anything, mock.Anything).Return(domain.ScoreOf(0.05))

	decision, err := svc.Screen(context.Background(), "AC rusak", "AC di ruang 301 mati sejak senin", nil)
	require.NoError(t, err)

	assert.True(t, decision.Allowed)
	assert.Empty(t, decision.Reason)
}

func TestModerationService_Screen_GamblingGateSumsBothScores(t *testing.T) {
	scorer := new(MockContentScorer)
	svc := NewModerationService(scorer, passthroughTranslator{}, defaultModerationConfig())

	// 0.15 + 0.15 crosses the 0.25 threshold even though neither input
	// does alone.
	scorer.On("DetectGambling", mock.Anything, "slot gacor").Return(domain.ScoreOf(0.15))
	scorer.On("DetectGambling", mock.Anything, "daftar sekarang").Return(domain.ScoreOf(0.15))

	decision, err := svc.Screen(context.Background(), "slot gacor", "daftar sekarang", nil)
	require.NoError(t, err)

	assert.False(t, decision.Allowed)
	assert.Equal(t, domain.RejectionReasonGambling, decision.Reason)
	scorer.AssertNotCalled(t, "DetectToxicity", mock.Anything, mock.Anything)
}

func TestModerationService_Screen_ViolationGateWeightedSum(t *testing.T) {
	scorer := new(MockContentScorer)
	svc := NewModerationService(scorer, passthroughTranslator{}, defaultModerationConfig())

	scorer.On("DetectGambling", mock.Anything, mock.Anything).Return(domain.ScoreOf(0))
	// 0.2*0.1 + 0.4*0.9 + 0.4*0 = 0.38 stays under; raise description to
	// 0.9 with a toxic title 0.8: 0.2*0.8 + 0.4*0.9 = 0.52 > 0.44.
	scorer.On("DetectToxicity", mock.Anything, "judul kasar").Return(domain.ScoreOf(0.8))
	scorer.On("DetectToxicity", mock.Anything, "isi kasar").Return(domain.ScoreOf(0.9))

	decision, err := svc.Screen(context.Background(), "judul kasar", "isi kasar", nil)
	require.NoError(t, err)

	assert.False(t, decision.Allowed)
	assert.Equal(t, domain.RejectionReasonViolation, decision.Reason)
}

func TestModerationService_Screen_ImageAttachmentUsesNSFWScore(t *testing.T) {
	scorer := new(MockContentScorer)
	svc := NewModerationService(scorer, passthroughTranslator{}, defaultModerationConfig())

	image := []byte{0xFF, 0xD8, 0xFF}
	scorer.On("DetectGambling", mock.Anything, mock.Anything).Return(domain.ScoreOf(0))
	scorer.On("DetectToxicity", mock.Anything, mock.Anything).Return(domain.ScoreOf(0))
	scorer.On("DetectImageNSFW", mock.Anything, image).Return(domain.ScoreOf(1.0))

	decision, err := svc.Screen(context.Background(), "bukti", "terlampir", &Attachment{
		Filename:    "bukti.jpg",
		ContentType: "image/jpeg",
		Data:        image,
	})
	require.NoError(t, err)

	// 0.4 * 1.0 = 0.40 alone stays under 0.44.
	assert.True(t, decision.Allowed)

	scorer.AssertCalled(t, "DetectImageNSFW", mock.Anything, image)
}

func TestModerationService_Screen_DocumentAttachmentScoredForToxicity(t *testing.T) {
	scorer := new(MockContentScorer)
	svc := NewModerationService(scorer, passthroughTranslator{}, defaultModerationConfig())

	scorer.On("DetectGambling", mock.Anything, mock.Anything).Return(domain.ScoreOf(0))
	scorer.On("DetectToxicity", mock.Anything, "judul").Return(domain.ScoreOf(0))
	scorer.On("DetectToxicity", mock.Anything, "isi laporan").Return(domain.ScoreOf(0))
	scorer.On("DetectToxicity", mock.Anything, "kronologi lengkap kejadian").Return(domain.ScoreOf(1.0))

	decision, err := svc.Screen(context.Background(), "judul", "isi laporan", &Attachment{
		Filename:    "kronologi.txt",
		ContentType: "text/plain",
		Data:        []byte("kronologi lengkap kejadian"),
	})
	require.NoError(t, err)

	assert.False(t, decision.Allowed)
	assert.Equal(t, domain.RejectionReasonViolation, decision.Reason)
	scorer.AssertNotCalled(t, "DetectImageNSFW", mock.Anything, mock.Anything)
}

func TestModerationService_Screen_UnsupportedAttachmentContributesZero(t *testing.T) {
	scorer := new(MockContentScorer)
	svc := NewModerationService(scorer, passthroughTranslator{}, defaultModerationConfig())

	scorer.On("DetectGambling", mock.Anything, mock.Anything).Return(domain.ScoreOf(0))
	scorer.On("DetectToxicity", mock.Anything, mock.Anything).Return(domain.ScoreOf(0))

	decision, err := svc.Screen(context.Background(), "judul", "isi", &Attachment{
		Filename:    "rekaman.mp3",
		ContentType: "audio/mpeg",
		Data:        []byte{0x49, 0x44, 0x33},
	})
	require.NoError(t, err)

	assert.True(t, decision.Allowed)
	scorer.AssertNotCalled(t, "DetectImageNSFW", mock.Anything, mock.Anything)
}

func TestModerationService_Screen_CorruptDocumentContributesZero(t *testing.T) {
	scorer := new(MockContentScorer)
	svc := NewModerationService(scorer, passthroughTranslator{}, defaultModerationConfig())

	scorer.On("DetectGambling", mock.Anything, mock.Anything).Return(domain.ScoreOf(0))
	scorer.On("DetectToxicity", mock.Anything, "judul").Return(domain.ScoreOf(0))
	scorer.On("DetectToxicity", mock.Anything, "isi").Return(domain.ScoreOf(0))

	decision, err := svc.Screen(context.Background(), "judul", "isi", &Attachment{
		Filename:    "lampiran.docx",
		ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Data:        []byte("bukan zip"),
	})
	require.NoError(t, err)

	assert.True(t, decision.Allowed)
}

func TestModerationService_Screen_FailOpenTreatsUnavailableAsZero(t *testing.T) {
	scorer := new(MockContentScorer)
	svc := NewModerationService(scorer, passthroughTranslator{}, defaultModerationConfig())

	scorer.On("DetectGambling", mock.Anything, mock.Anything).Return(domain.ScoreUnavailable())
	scorer.On("DetectToxicity", mock.Anything, mock.Anything).Return(domain.ScoreUnavailable())

	decision, err := svc.Screen(context.Background(), "judul", "isi", nil)
	require.NoError(t, err)

	assert.True(t, decision.Allowed)
}

func TestModerationService_Screen_FailClosedSurfacesOracleError(t *testing.T) {
	cfg := defaultModerationConfig()
	cfg.FailOpen = false
	scorer := new(MockContentScorer)
	svc := NewModerationService(scorer, passthroughTranslator{}, cfg)

	scorer.On("DetectGambling", mock.Anything, mock.Anything).Return(domain.ScoreUnavailable())

	_, err := svc.Screen(context.Background(), "judul", "isi", nil)
	assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
}

func TestModerationService_Screen_EmptyTitleSkipsClassifier(t *testing.T) {
	scorer := new(MockContentScorer)
	svc := NewModerationService(scorer, passthroughTranslator{}, defaultModerationConfig())

	scorer.On("DetectGambling", mock.Anything, "isi laporan").Return(domain.ScoreOf(0))
	scorer.On("DetectToxicity", mock.Anything, "isi laporan").Return(domain.ScoreOf(0))

	decision, err := svc.Screen(context.Background(), "", "isi laporan", nil)
	require.NoError(t, err)

	assert.True(t, decision.Allowed)
	scorer.AssertNotCalled(t, "DetectGambling", mock.Anything, "")
}

// docxAttachment builds a minimal valid .docx so the extraction path is
// exercised end to end through the weighted gate.
func docxAttachment(t *testing.T, text string) *Attachment {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return &Attachment{
		Filename:    "lampiran.docx",
		ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Data:        buf.Bytes(),
	}
}

func TestModerationService_Screen_DocxExtractionFlowsIntoGate(t *testing.T) {
	scorer := new(MockContentScorer)
	svc := NewModerationService(scorer, passthroughTranslator{}, defaultModerationConfig())

	attachment := docxAttachment(t, "isi dokumen kasar sekali")

	scorer.On("DetectGambling", mock.Anything, mock.Anything).Return(domain.ScoreOf(0))
	scorer.On("DetectToxicity", mock.Anything, "judul").Return(domain.ScoreOf(0))
	scorer.On("DetectToxicity", mock.Anything, "isi").Return(domain.ScoreOf(0))
	scorer.On("DetectToxicity", mock.Anything, mock.MatchedBy(func(text string) bool {
		return bytes.Contains([]byte(text), []byte("isi dokumen kasar sekali"))
	})).Return(domain.ScoreOf(1.0))

	decision, err := svc.Screen(context.Background(), "judul", "isi", attachment)
	require.NoError(t, err)

	assert.False(t, decision.Allowed)
	assert.Equal(t, domain.RejectionReasonViolation, decision.Reason)
}
