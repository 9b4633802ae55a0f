package command

import (
	"context"
	"fmt"

	"github.com/eaglebank/assistant/internal/cqrs"
	"github.com/eaglebank/assistant/internal/events"
	"github.com/eaglebank/assistant/internal/logger"
	"github.com/eaglebank/assistant/internal/models"
)

type TurnWriter interface {
	Append(ctx context.Context, turn *models.ConversationTurn) error
}

// TranscriptCommandService appends conversation turns and announces them on
// the conversation stream.
type TranscriptCommandService struct {
	turns     TurnWriter
	publisher EventPublisher
}

func NewTranscriptCommandService(turns TurnWriter, publisher EventPublisher) *TranscriptCommandService {
	return &TranscriptCommandService{turns: turns, publisher: publisher}
}

func (s *TranscriptCommandService) Append(ctx context.Context, cmd cqrs.AppendTurnCommand) (*models.ConversationTurn, error) {
	turn := &models.ConversationTurn{
		SessionID: cmd.SessionID,
		UserID:    cmd.UserID,
		Role:      cmd.Role,
		Name:      cmd.Name,
		Text:      cmd.Text,
	}
	if err := s.turns.Append(ctx, turn); err != nil {
		return nil, fmt.Errorf("append %s turn: %w", cmd.Role, err)
	}

	if err := s.publisher.Publish(ctx, events.ConversationEventsStream, events.TurnAppended, events.TurnAppendedEvent{
		TurnID:    turn.ID,
		SessionID: turn.SessionID,
		UserID:    turn.UserID,
		Role:      string(turn.Role),
		Name:      turn.Name,
	}); err != nil {
		lg := logger.FromContext(ctx)
		lg.Warn().Err(err).Int64("turnId", turn.ID).Msg("failed to publish turn.appended event")
	}
	return turn, nil
}
