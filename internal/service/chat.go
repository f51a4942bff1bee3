package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/colsp-platform/colsp/internal/domain"
	"github.com/colsp-platform/colsp/internal/telemetry"
)

const (
	// generationFailureReply is returned to the user whenever the
	// generation oracle cannot be reached. The turn is still persisted
	// with this reply so the conversation history stays continuous.
	generationFailureReply = "Maaf, tidak dapat terhubung ke otak AI."

	emptyHistoryPlaceholder = "Belum ada riwayat percakapan."

	promptInstruction = `INSTRUKSI: Jawab pertanyaan user berdasarkan KONTEKS DATA berikut. Jika tidak ada info yang relevan,
katakan "Maaf, saya tidak memiliki informasi tersebut." tapi tetap berikan jawaban yang membantu dan ramah.
Jangan buat-buat informasi yang tidak ada di konteks. Gunakan bahasa yang sesuai dengan persona di atas.`
)

// ChatHistoryRepository defines the repository interface for chat turns.
// LastByUser returns at most limit turns ordered oldest-first.
type ChatHistoryRepository interface {
	Create(ctx context.Context, turn *domain.ChatTurn) error
	LastByUser(ctx context.Context, userID string, limit int) ([]*domain.ChatTurn, error)
}

// TextGenerator defines the generation oracle interface
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Retriever supplies grounded context for a user query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (*RetrievalResult, error)
}

// ChatService orchestrates a single chat turn: history window, hybrid
// retrieval, prompt composition, one generation call, persistence.
type ChatService struct {
	history   ChatHistoryRepository
	retriever Retriever
	generator TextGenerator
}

// NewChatService creates a new ChatService instance
func NewChatService(history ChatHistoryRepository, retriever Retriever, generator TextGenerator) *ChatService {
	return &ChatService{
		history:   history,
		retriever: retriever,
		generator: generator,
	}
}

// HandleTurn answers one user message. Generation failure degrades to a
// fixed apology rather than an error; the turn is persisted either way.
func (s *ChatService) HandleTurn(ctx context.Context, userID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", domain.ErrEmptyMessage
	}

	ctx, span := telemetry.StartSpan(ctx, "ChatService.HandleTurn", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "chat_turn",
	})
	defer span.End()

	turns, err := s.history.LastByUser(ctx, userID, domain.HistoryWindow)
	if err != nil {
		return "", fmt.Errorf("failed to load chat history: %w", err)
	}

	retrieved, err := s.retriever.Retrieve(ctx, message)
	if err != nil {
		return "", fmt.Errorf("retrieval failed: %w", err)
	}

	prompt := buildPrompt(retrieved.Persona, retrieved.Context, turns, message)

	response, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		log.Printf("chat: generation oracle unavailable: %v", err)
		response = generationFailureReply
	}

	turn := &domain.ChatTurn{
		ID:                uuid.New().String(),
		UserID:            userID,
		UserMessage:       message,
		AssistantResponse: response,
		Timestamp:         time.Now().UTC(),
	}
	if err := s.history.Create(ctx, turn); err != nil {
		return "", fmt.Errorf("failed to persist chat turn: %w", err)
	}

	return response, nil
}

// buildPrompt renders the Zephyr chat template with persona, grounding
// context, and the transcript of prior turns oldest-first.
func buildPrompt(persona, context string, turns []*domain.ChatTurn, message string) string {
	transcript := emptyHistoryPlaceholder
	if len(turns) > 0 {
		var sb strings.Builder
		for _, turn := range turns {
			sb.WriteString(fmt.Sprintf("User: %s\nAI: %s\n", turn.UserMessage, turn.AssistantResponse))
		}
		transcript = sb.String()
	}

	return fmt.Sprintf(`<|system|>
%s

%s

KONTEKS DATA KAMPUS:
%s

RIWAYAT CHAT:
%s
<|end|>
<|user|>
%s
<|assistant|>
`, persona, promptInstruction, context, transcript, message)
}
