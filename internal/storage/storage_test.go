package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/shelver/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createCollection(t *testing.T, s *Store, name string) *models.Collection {
	t.Helper()
	c := &models.Collection{Name: name}
	require.NoError(t, s.CreateCollection(context.Background(), c))
	return c
}

func intPtr(n int) *int { return &n }

func TestCollectionCRUD(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	c := &models.Collection{Name: "Roof East", Description: "phase 1"}
	require.NoError(t, s.CreateCollection(ctx, c))
	assert.NotZero(t, c.ID)
	assert.False(t, c.CreatedAt.IsZero())

	got, err := s.GetCollection(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Roof East", got.Name)
	assert.Equal(t, "phase 1", got.Description)
	assert.Empty(t, got.ImageRef)

	got.Name = "Roof West"
	got.ImageRef = "images/roof.jpg"
	require.NoError(t, s.UpdateCollection(ctx, got))

	again, err := s.GetCollection(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Roof West", again.Name)
	assert.Equal(t, "images/roof.jpg", again.ImageRef)

	all, err := s.ListCollections(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.DeleteCollection(ctx, c.ID))
	_, err = s.GetCollection(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteCollection(ctx, c.ID), ErrNotFound)
	assert.ErrorIs(t, s.UpdateCollection(ctx, &models.Collection{ID: 999, Name: "x"}), ErrNotFound)
}

func TestDeleteCollectionCascades(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	c := createCollection(t, s, "P")
	other := createCollection(t, s, "Q")

	err := s.WithCollectionTx(ctx, c.ID, func(tx *Tx) error {
		_, err := tx.InsertItems(ctx, []models.ImportRecord{{PackageID: "P1", Serial: "S1"}})
		return err
	})
	require.NoError(t, err)
	err = s.WithCollectionTx(ctx, other.ID, func(tx *Tx) error {
		_, err := tx.InsertItems(ctx, []models.ImportRecord{{PackageID: "P1", Serial: "S1"}})
		return err
	})
	require.NoError(t, err)
	require.NoError(t, s.CreateMappingRule(ctx, &models.MappingRule{CollectionID: c.ID, RecordType: "text", FieldPath: "serial"}))
	tok, err := s.CreateShareToken(ctx, c.ID, 0)
	require.NoError(t, err)

	require.NoError(t, s.DeleteCollection(ctx, c.ID))

	items, err := s.ListItems(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	rules, err := s.ListMappingRules(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, rules)
	_, err = s.GetShareToken(ctx, tok.Token)
	assert.ErrorIs(t, err, ErrNotFound)

	remaining, err := s.ListItems(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestInsertItemsSkipsExistingSerials(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	c := createCollection(t, s, "P")

	var first, second int
	err := s.WithCollectionTx(ctx, c.ID, func(tx *Tx) error {
		var err error
		first, err = tx.InsertItems(ctx, []models.ImportRecord{
			{PackageID: "P1", Serial: "S1"},
			{PackageID: "P1", Serial: "S2"},
		})
		return err
	})
	require.NoError(t, err)

	err = s.WithCollectionTx(ctx, c.ID, func(tx *Tx) error {
		var err error
		second, err = tx.InsertItems(ctx, []models.ImportRecord{
			{PackageID: "P9", Serial: "S2"},
			{PackageID: "P2", Serial: "S3"},
		})
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, 2, first)
	assert.Equal(t, 1, second)

	items, err := s.ListItems(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "S1", items[0].Serial)
	assert.Equal(t, "P1", items[1].PackageID, "existing item must not be overwritten")
	assert.Nil(t, items[2].Placement)
	assert.Nil(t, items[2].PlacedAt)

	err = s.WithCollectionTx(ctx, c.ID, func(tx *Tx) error {
		set, err := tx.SerialSet(ctx)
		if err != nil {
			return err
		}
		assert.Len(t, set, 3)
		assert.Contains(t, set, "S3")
		return nil
	})
	require.NoError(t, err)
}

func TestPlaceItem(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	c := createCollection(t, s, "P")

	err := s.WithCollectionTx(ctx, c.ID, func(tx *Tx) error {
		_, err := tx.InsertItems(ctx, []models.ImportRecord{
			{PackageID: "P1", Serial: "S1"},
			{PackageID: "P1", Serial: "S2"},
			{PackageID: "P1", Serial: "S3"},
		})
		return err
	})
	require.NoError(t, err)

	s1, err := s.GetItemBySerial(ctx, c.ID, "S1")
	require.NoError(t, err)
	s2, err := s.GetItemBySerial(ctx, c.ID, "S2")
	require.NoError(t, err)
	s3, err := s.GetItemBySerial(ctx, c.ID, "S3")
	require.NoError(t, err)

	at := time.Now().UTC()
	loc := models.Placement{Section: "A", Row: 1, Column: intPtr(1)}

	err = s.WithCollectionTx(ctx, c.ID, func(tx *Tx) error {
		ok, err := tx.PlaceItem(ctx, s1.ID, loc, at)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = tx.PlaceItem(ctx, s1.ID, models.Placement{Section: "B", Row: 1}, at)
		require.NoError(t, err)
		assert.False(t, ok, "placed item must not be placed again")

		_, err = tx.PlaceItem(ctx, s2.ID, loc, at)
		assert.ErrorIs(t, err, ErrLocationTaken)

		// row-only placements do not claim a location
		ok, err = tx.PlaceItem(ctx, s3.ID, models.Placement{Section: "A", Row: 1}, at)
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = tx.PlaceItem(ctx, s2.ID, models.Placement{Section: "A", Row: models.MaxRow + 1}, at)
		assert.Error(t, err, "rows past the bound are rejected by the schema")
		_, err = tx.PlaceItem(ctx, s2.ID, models.Placement{Section: "A", Row: 1, Column: intPtr(models.MaxColumn + 1)}, at)
		assert.Error(t, err, "columns past the bound are rejected by the schema")

		holder, err := tx.FindPlacedAt(ctx, "A", 1, 1)
		require.NoError(t, err)
		assert.Equal(t, "S1", holder.Serial)

		_, err = tx.FindPlacedAt(ctx, "A", 1, 2)
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	})
	require.NoError(t, err)

	got, err := s.GetItem(ctx, s1.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Placement)
	require.NotNil(t, got.PlacedAt)
	assert.Equal(t, "A-1-1", got.Placement.String())

	rowOnly, err := s.GetItem(ctx, s3.ID)
	require.NoError(t, err)
	require.NotNil(t, rowOnly.Placement)
	assert.Nil(t, rowOnly.Placement.Column)
	assert.Equal(t, "A-1", rowOnly.Placement.String())
}

func TestMappingRulesKeepCreationOrder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	c := createCollection(t, s, "P")

	for _, rt := range []string{"url", "text", "mime"} {
		require.NoError(t, s.CreateMappingRule(ctx, &models.MappingRule{CollectionID: c.ID, RecordType: rt, FieldPath: "serial"}))
	}

	rules, err := s.ListMappingRules(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, []string{"url", "text", "mime"}, []string{rules[0].RecordType, rules[1].RecordType, rules[2].RecordType})

	// editing a rule does not move it
	rules[0].FieldPath = "sn"
	require.NoError(t, s.UpdateMappingRule(ctx, &rules[0]))
	again, err := s.ListMappingRules(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "url", again[0].RecordType)
	assert.Equal(t, "sn", again[0].FieldPath)

	require.NoError(t, s.DeleteMappingRule(ctx, rules[1].ID))
	assert.ErrorIs(t, s.DeleteMappingRule(ctx, rules[1].ID), ErrNotFound)
	_, err = s.GetMappingRule(ctx, rules[1].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShareTokens(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	c := createCollection(t, s, "P")

	tok, err := s.CreateShareToken(ctx, c.ID, time.Hour)
	require.NoError(t, err)
	assert.Len(t, tok.Token, 32)
	require.NotNil(t, tok.ExpiresAt)

	got, err := s.GetShareToken(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.CollectionID)
	require.NotNil(t, got.ExpiresAt)
	assert.False(t, got.Expired(time.Now()))
	assert.True(t, got.Expired(time.Now().Add(2*time.Hour)))

	forever, err := s.CreateShareToken(ctx, c.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, forever.ExpiresAt)
	assert.NotEqual(t, tok.Token, forever.Token)

	_, err = s.GetShareToken(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "shelver.db")
	s, err := Open(path)
	require.NoError(t, err)
	c := createCollection(t, s, "persisted")
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.GetCollection(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.Name)
	assert.Equal(t, path, reopened.Path())
}

func TestLockerSerializesPerKey(t *testing.T) {
	l := NewLocker()
	ctx := context.Background()

	var mu sync.Mutex
	active, maxActive := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, 1)
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
	assert.Equal(t, 0, l.Len())
}

func TestLockerHonorsContext(t *testing.T) {
	l := NewLocker()
	unlock, err := l.Lock(context.Background(), 7)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, 7)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// other keys are independent
	unlockOther, err := l.Lock(context.Background(), 8)
	require.NoError(t, err)
	unlockOther()

	unlock()
	unlock() // second call is a no-op
	assert.Equal(t, 0, l.Len())
}
