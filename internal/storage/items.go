package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lehigh-university-libraries/shelver/internal/models"
)

const itemColumns = `id, collection_id, package_id, serial, section, row_number, column_number, placed_at, created_at, updated_at`

// ListItems returns the items of a collection in creation order
func (s *Store) ListItems(ctx context.Context, collectionID int64) ([]models.Item, error) {
	return listItems(ctx, s.db, collectionID)
}

// GetItem returns an item by id
func (s *Store) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	return getItem(ctx, s.db, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
}

// GetItemBySerial returns the item with the given serial in a collection
func (s *Store) GetItemBySerial(ctx context.Context, collectionID int64, serial string) (*models.Item, error) {
	return getItemBySerial(ctx, s.db, collectionID, serial)
}

// DeleteItem removes an item by id
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item %d: %w", id, err)
	}
	return expectOne(res)
}

// SerialSet returns every serial already present in the transaction's collection
func (t *Tx) SerialSet(ctx context.Context) (map[string]struct{}, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT serial FROM items WHERE collection_id = ?`, t.collectionID)
	if err != nil {
		return nil, fmt.Errorf("load serials: %w", err)
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var serial string
		if err := rows.Scan(&serial); err != nil {
			return nil, fmt.Errorf("load serials: %w", err)
		}
		set[serial] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load serials: %w", err)
	}
	return set, nil
}

// InsertItems inserts unplaced items and returns how many rows were written.
// Rows whose serial already exists in the collection are skipped by the
// UNIQUE constraint rather than failing the batch.
func (t *Tx) InsertItems(ctx context.Context, records []models.ImportRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	stmt, err := t.tx.PrepareContext(ctx,
		`INSERT INTO items (collection_id, package_id, serial, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(collection_id, serial) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare item insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	inserted := 0
	for _, r := range records {
		res, err := stmt.ExecContext(ctx, t.collectionID, r.PackageID, r.Serial, now, now)
		if err != nil {
			return inserted, fmt.Errorf("insert item %q: %w", r.Serial, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("insert item %q: %w", r.Serial, err)
		}
		inserted += int(n)
	}
	return inserted, nil
}

// GetItemBySerial is GetItemBySerial inside the transaction
func (t *Tx) GetItemBySerial(ctx context.Context, serial string) (*models.Item, error) {
	return getItemBySerial(ctx, t.tx, t.collectionID, serial)
}

// FindPlacedAt returns the placed item holding the given location, or ErrNotFound
func (t *Tx) FindPlacedAt(ctx context.Context, section string, row, column int) (*models.Item, error) {
	return getItem(ctx, t.tx,
		`SELECT `+itemColumns+` FROM items
		 WHERE collection_id = ? AND section = ? AND row_number = ? AND column_number = ? AND placed_at IS NOT NULL
		 LIMIT 1`,
		t.collectionID, section, row, column)
}

// PlaceItem sets the placement of an unplaced item. It reports false when the
// item was already placed (or no longer exists) and returns ErrLocationTaken
// when another placed item holds the location.
func (t *Tx) PlaceItem(ctx context.Context, itemID int64, p models.Placement, at time.Time) (bool, error) {
	var column sql.NullInt64
	if p.Column != nil {
		column = sql.NullInt64{Int64: int64(*p.Column), Valid: true}
	}
	res, err := t.tx.ExecContext(ctx,
		`UPDATE items SET section = ?, row_number = ?, column_number = ?, placed_at = ?, updated_at = ?
		 WHERE id = ? AND collection_id = ? AND placed_at IS NULL`,
		p.Section, p.Row, column, at, at, itemID, t.collectionID)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return false, ErrLocationTaken
		}
		return false, fmt.Errorf("place item %d: %w", itemID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("place item %d: %w", itemID, err)
	}
	return n == 1, nil
}

// GetItem is GetItem inside the transaction
func (t *Tx) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	return getItem(ctx, t.tx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
}

func listItems(ctx context.Context, db execer, collectionID int64) ([]models.Item, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items WHERE collection_id = ? ORDER BY id ASC`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	out := []models.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return out, nil
}

func getItemBySerial(ctx context.Context, db execer, collectionID int64, serial string) (*models.Item, error) {
	return getItem(ctx, db, `SELECT `+itemColumns+` FROM items WHERE collection_id = ? AND serial = ?`, collectionID, serial)
}

func getItem(ctx context.Context, db execer, query string, args ...any) (*models.Item, error) {
	it, err := scanItem(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

func scanItem(row rowScanner) (*models.Item, error) {
	var it models.Item
	var section sql.NullString
	var rowNum, colNum sql.NullInt64
	var placedAt sql.NullTime
	if err := row.Scan(&it.ID, &it.CollectionID, &it.PackageID, &it.Serial,
		&section, &rowNum, &colNum, &placedAt, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	if section.Valid {
		p := &models.Placement{Section: section.String, Row: int(rowNum.Int64)}
		if colNum.Valid {
			c := int(colNum.Int64)
			p.Column = &c
		}
		it.Placement = p
	}
	if placedAt.Valid {
		t := placedAt.Time
		it.PlacedAt = &t
	}
	return &it, nil
}
