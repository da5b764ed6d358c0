package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lehigh-university-libraries/shelver/internal/models"
)

const collectionColumns = `id, name, description, image_ref, created_at, updated_at`

// Path returns the database location the store was opened with
func (s *Store) Path() string {
	return s.path
}

// CreateCollection inserts c and fills in its id and timestamps
func (s *Store) CreateCollection(ctx context.Context, c *models.Collection) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name, description, image_ref, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.Name, nullString(c.Description), nullString(c.ImageRef), now, now)
	if err != nil {
		return fmt.Errorf("insert collection: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert collection: %w", err)
	}
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

// GetCollection returns the collection with the given id
func (s *Store) GetCollection(ctx context.Context, id int64) (*models.Collection, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+collectionColumns+` FROM collections WHERE id = ?`, id)
	c, err := scanCollection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get collection %d: %w", id, err)
	}
	return c, nil
}

// ListCollections returns all collections, newest first
func (s *Store) ListCollections(ctx context.Context) ([]models.Collection, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+collectionColumns+` FROM collections ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	out := []models.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("list collections: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return out, nil
}

// UpdateCollection overwrites name, description and image reference of c
func (s *Store) UpdateCollection(ctx context.Context, c *models.Collection) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE collections SET name = ?, description = ?, image_ref = ?, updated_at = ? WHERE id = ?`,
		c.Name, nullString(c.Description), nullString(c.ImageRef), now, c.ID)
	if err != nil {
		return fmt.Errorf("update collection %d: %w", c.ID, err)
	}
	if err := expectOne(res); err != nil {
		return err
	}
	c.UpdatedAt = now
	return nil
}

// DeleteCollection removes a collection together with its items, rules and share tokens
func (s *Store) DeleteCollection(ctx context.Context, id int64) error {
	return s.WithCollectionTx(ctx, id, func(tx *Tx) error {
		// explicit cascade; the foreign keys do the same when enabled
		for _, stmt := range []string{
			`DELETE FROM items WHERE collection_id = ?`,
			`DELETE FROM mapping_rules WHERE collection_id = ?`,
			`DELETE FROM share_tokens WHERE collection_id = ?`,
		} {
			if _, err := tx.tx.ExecContext(ctx, stmt, id); err != nil {
				return fmt.Errorf("delete collection %d: %w", id, err)
			}
		}
		res, err := tx.tx.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete collection %d: %w", id, err)
		}
		return expectOne(res)
	})
}

// CollectionExists reports whether a collection row exists, inside the transaction
func (t *Tx) CollectionExists(ctx context.Context) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx, `SELECT 1 FROM collections WHERE id = ?`, t.collectionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check collection %d: %w", t.collectionID, err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCollection(row rowScanner) (*models.Collection, error) {
	var c models.Collection
	var desc, img sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &desc, &img, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Description = desc.String
	c.ImageRef = img.String
	return &c, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
