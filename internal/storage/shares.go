package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/shelver/internal/models"
)

// CreateShareToken issues a random token for a collection. A zero ttl means the token never expires.
func (s *Store) CreateShareToken(ctx context.Context, collectionID int64, ttl time.Duration) (*models.ShareToken, error) {
	now := time.Now().UTC()
	tok := &models.ShareToken{
		Token:        strings.ReplaceAll(uuid.NewString(), "-", ""),
		CollectionID: collectionID,
		CreatedAt:    now,
	}
	var expires sql.NullTime
	if ttl > 0 {
		exp := now.Add(ttl)
		tok.ExpiresAt = &exp
		expires = sql.NullTime{Time: exp, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO share_tokens (token, collection_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		tok.Token, tok.CollectionID, expires, tok.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert share token: %w", err)
	}
	return tok, nil
}

// GetShareToken looks a token up. Expiry is left to the caller.
func (s *Store) GetShareToken(ctx context.Context, token string) (*models.ShareToken, error) {
	var tok models.ShareToken
	var expires sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT token, collection_id, expires_at, created_at FROM share_tokens WHERE token = ?`, token).
		Scan(&tok.Token, &tok.CollectionID, &expires, &tok.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get share token: %w", err)
	}
	if expires.Valid {
		t := expires.Time
		tok.ExpiresAt = &t
	}
	return &tok, nil
}
