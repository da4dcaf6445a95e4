package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shoplist/server/internal/models"
)

// SessionRepository implements SessionRepo for PostgreSQL/SQLite
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Add(ctx context.Context, session *models.Session) error {
	query := `INSERT INTO sessions (token, created_at, expires_at) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, session.Token, session.CreatedAt, session.ExpiresAt)
	return err
}

func (r *SessionRepository) Get(ctx context.Context, token string) (*models.Session, error) {
	query := `SELECT token, created_at, expires_at FROM sessions WHERE token = $1`

	var session models.Session
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&session.Token, &session.CreatedAt, &session.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < $1`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
