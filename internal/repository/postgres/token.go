package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slotbook/booking-api/internal/model"
	"github.com/slotbook/booking-api/internal/repository"
	apperrors "github.com/slotbook/booking-api/pkg/errors"
)

type tokenRepository struct {
	BaseRepository
}

func NewTokenRepository(base BaseRepository) repository.TokenRepository {
	return &tokenRepository{base}
}

func (r *tokenRepository) Create(ctx context.Context, token *model.AccessToken) error {
	query := `
		INSERT INTO appointment_access_tokens (
			id, appointment_id, business_id, lookup, secret_hash, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	token.ID = uuid.New()
	token.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.AppointmentID,
		token.BusinessID,
		token.Lookup,
		token.SecretHash,
		token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	return nil
}

// GetByLookup fetches by the deterministic digest. Revoked tokens are
// returned so the service can distinguish "revoked" from "never existed" in
// logs; both present as not-found to the client.
func (r *tokenRepository) GetByLookup(ctx context.Context, lookup string) (*model.AccessToken, error) {
	query := `
		SELECT id, appointment_id, business_id, lookup, secret_hash, created_at, revoked_at
		FROM appointment_access_tokens
		WHERE lookup = $1
	`
	var token model.AccessToken
	err := r.db.GetContext(ctx, &token, query, lookup)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("access token", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}
	return &token, nil
}

func (r *tokenRepository) RevokeForAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	query := `
		UPDATE appointment_access_tokens
		SET revoked_at = NOW()
		WHERE appointment_id = $1 AND revoked_at IS NULL
	`
	if _, err := r.db.ExecContext(ctx, query, appointmentID); err != nil {
		return fmt.Errorf("failed to revoke access tokens: %w", err)
	}
	return nil
}
