package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eaglebank/assistant/internal/models"
)

// TurnRepository stores conversation transcripts. Each append is a single
// insert; ordering within a session follows the generated id.
type TurnRepository struct {
	db *sql.DB
}

func NewTurnRepository(db *sql.DB) *TurnRepository {
	return &TurnRepository{db: db}
}

// Append inserts turn and fills in its ID and CreatedAt.
func (r *TurnRepository) Append(ctx context.Context, turn *models.ConversationTurn) error {
	query := `
		INSERT INTO conversation_turns (session_id, user_id, role, name, text)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		turn.SessionID, turn.UserID, turn.Role, nullString(turn.Name), turn.Text,
	).Scan(&turn.ID, &turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

// ListBySession returns the turns of a session owned by userID in creation order.
func (r *TurnRepository) ListBySession(ctx context.Context, sessionID, userID string) ([]models.ConversationTurn, error) {
	query := `
		SELECT id, session_id, user_id, role, name, text, created_at
		FROM conversation_turns
		WHERE session_id = $1 AND user_id = $2
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	turns := []models.ConversationTurn{}
	for rows.Next() {
		var (
			t    models.ConversationTurn
			name sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.SessionID, &t.UserID, &t.Role, &name, &t.Text, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.Name = name.String
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	return turns, nil
}
