package query

import (
	"context"
	"fmt"

	"github.com/eaglebank/assistant/internal/apperr"
	"github.com/eaglebank/assistant/internal/cqrs"
	"github.com/eaglebank/assistant/internal/models"
)

type TurnReader interface {
	ListBySession(ctx context.Context, sessionID, userID string) ([]models.ConversationTurn, error)
}

type TranscriptQueryService struct {
	turns TurnReader
}

func NewTranscriptQueryService(turns TurnReader) *TranscriptQueryService {
	return &TranscriptQueryService{turns: turns}
}

// GetTranscript replays a session in creation order. Sessions of other users
// are indistinguishable from unknown ones.
func (s *TranscriptQueryService) GetTranscript(ctx context.Context, q cqrs.GetTranscriptQuery) ([]models.ConversationTurn, error) {
	turns, err := s.turns.ListBySession(ctx, q.SessionID, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	if len(turns) == 0 {
		return nil, apperr.NotFoundf("Session %s not found", q.SessionID)
	}
	return turns, nil
}
