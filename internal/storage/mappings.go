package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lehigh-university-libraries/shelver/internal/models"
)

const ruleColumns = `id, collection_id, record_type, field_path, description, created_at, updated_at`

// ListMappingRules returns a collection's rules in creation order, which is
// the order they are tried in when resolving a tag
func (s *Store) ListMappingRules(ctx context.Context, collectionID int64) ([]models.MappingRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM mapping_rules WHERE collection_id = ? ORDER BY id ASC`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list mapping rules: %w", err)
	}
	defer rows.Close()

	out := []models.MappingRule{}
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("list mapping rules: %w", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list mapping rules: %w", err)
	}
	return out, nil
}

// GetMappingRule returns a rule by id
func (s *Store) GetMappingRule(ctx context.Context, id int64) (*models.MappingRule, error) {
	r, err := scanRule(s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM mapping_rules WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get mapping rule %d: %w", id, err)
	}
	return r, nil
}

// CreateMappingRule inserts r and fills in its id and timestamps
func (s *Store) CreateMappingRule(ctx context.Context, r *models.MappingRule) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO mapping_rules (collection_id, record_type, field_path, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.CollectionID, r.RecordType, r.FieldPath, nullString(r.Description), now, now)
	if err != nil {
		return fmt.Errorf("insert mapping rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert mapping rule: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// UpdateMappingRule overwrites the record type, field path and description of r
func (s *Store) UpdateMappingRule(ctx context.Context, r *models.MappingRule) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE mapping_rules SET record_type = ?, field_path = ?, description = ?, updated_at = ? WHERE id = ?`,
		r.RecordType, r.FieldPath, nullString(r.Description), now, r.ID)
	if err != nil {
		return fmt.Errorf("update mapping rule %d: %w", r.ID, err)
	}
	if err := expectOne(res); err != nil {
		return err
	}
	r.UpdatedAt = now
	return nil
}

// DeleteMappingRule removes a rule by id
func (s *Store) DeleteMappingRule(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mapping_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete mapping rule %d: %w", id, err)
	}
	return expectOne(res)
}

func scanRule(row rowScanner) (*models.MappingRule, error) {
	var r models.MappingRule
	var desc sql.NullString
	if err := row.Scan(&r.ID, &r.CollectionID, &r.RecordType, &r.FieldPath, &desc, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Description = desc.String
	return &r, nil
}
