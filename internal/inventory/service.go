// Package inventory is the reconciliation and placement engine. It merges
// bulk-imported batches into a collection, commits scan-time placements and
// resolves identifiers from tag payloads, on top of storage.Store.
package inventory

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/lehigh-university-libraries/shelver/internal/layout"
	"github.com/lehigh-university-libraries/shelver/internal/mapping"
	"github.com/lehigh-university-libraries/shelver/internal/models"
	"github.com/lehigh-university-libraries/shelver/internal/storage"
)

// ErrShareExpired is returned when opening a share token past its expiry
var ErrShareExpired = errors.New("share link has expired")

// ErrNotResolved is returned by ScanTag when no rule matches the tag
var ErrNotResolved = errors.New("no identifier could be resolved from the tag")

// Service is the engine entry point used by the HTTP handlers and the CLI
type Service struct {
	store    *storage.Store
	importer *Importer
	placer   *Placer
}

// NewService wires an importer and a placer over store
func NewService(store *storage.Store) *Service {
	return &Service{
		store:    store,
		importer: NewImporter(store),
		placer:   NewPlacer(store),
	}
}

// Store returns the underlying store
func (s *Service) Store() *storage.Store {
	return s.store
}

// ImportBatch adds the records not yet present in the collection
func (s *Service) ImportBatch(ctx context.Context, collectionID int64, records []models.ImportRecord) (*ImportResult, error) {
	return s.importer.Import(ctx, collectionID, records)
}

// Scan places one item
func (s *Service) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	return s.placer.Scan(ctx, req)
}

// ResolveIdentifier runs the collection's mapping rules over a tag message.
// ok is false when no rule matched any record.
func (s *Service) ResolveIdentifier(ctx context.Context, collectionID int64, msg mapping.Message) (mapping.Resolution, bool, error) {
	rules, err := s.store.ListMappingRules(ctx, collectionID)
	if err != nil {
		return mapping.Resolution{}, false, classify("list mapping rules", err)
	}
	res, ok := mapping.ResolveDetail(rules, msg)
	if ok {
		slog.Debug("Resolved identifier",
			"collection_id", collectionID,
			"identifier", res.Identifier,
			"record_type", res.Rule.RecordType,
			"fallback", res.Fallback)
	}
	return res, ok, nil
}

// ScanTag resolves the serial from a tag message and then scans it into req's
// location. req.Serial is ignored.
func (s *Service) ScanTag(ctx context.Context, req ScanRequest, msg mapping.Message) (*ScanResult, error) {
	res, ok, err := s.ResolveIdentifier(ctx, req.CollectionID, msg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotResolved
	}
	req.Serial = res.Identifier
	return s.placer.Scan(ctx, req)
}

// ProjectLayout returns the grid view of a collection
func (s *Service) ProjectLayout(ctx context.Context, collectionID int64) (*layout.Layout, error) {
	items, err := s.collectionItems(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	return layout.Project(items), nil
}

// Stats returns placement progress for a collection
func (s *Service) Stats(ctx context.Context, collectionID int64) (*layout.Stats, error) {
	items, err := s.collectionItems(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	return layout.Summarize(items), nil
}

// CollectionView bundles everything a read-only viewer needs
type CollectionView struct {
	Collection *models.Collection `json:"collection"`
	Items      []models.Item      `json:"items"`
	Layout     *layout.Layout     `json:"layout"`
	Stats      *layout.Stats      `json:"stats"`
}

// View loads a collection together with its items, layout and stats
func (s *Service) View(ctx context.Context, collectionID int64) (*CollectionView, error) {
	c, err := s.Collection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListItems(ctx, collectionID)
	if err != nil {
		return nil, classify("list items", err)
	}
	return &CollectionView{
		Collection: c,
		Items:      items,
		Layout:     layout.Project(items),
		Stats:      layout.Summarize(items),
	}, nil
}

// Collection returns a collection or a *NotFoundError
func (s *Service) Collection(ctx context.Context, collectionID int64) (*models.Collection, error) {
	c, err := s.store.GetCollection(ctx, collectionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, collectionNotFound(collectionID)
	}
	if err != nil {
		return nil, classify("get collection", err)
	}
	return c, nil
}

// Share issues a share token for a collection
func (s *Service) Share(ctx context.Context, collectionID int64, ttl time.Duration) (*models.ShareToken, error) {
	if ttl < 0 {
		return nil, invalid("ttl", -1, "must not be negative")
	}
	if _, err := s.Collection(ctx, collectionID); err != nil {
		return nil, err
	}
	tok, err := s.store.CreateShareToken(ctx, collectionID, ttl)
	if err != nil {
		return nil, classify("create share token", err)
	}
	slog.Info("Share token created", "collection_id", collectionID, "expires_at", tok.ExpiresAt)
	return tok, nil
}

// OpenShare returns the collection view behind a token. Expired tokens yield
// ErrShareExpired, unknown ones a *NotFoundError.
func (s *Service) OpenShare(ctx context.Context, token string) (*CollectionView, error) {
	tok, err := s.store.GetShareToken(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &NotFoundError{Kind: "share token", Key: token}
	}
	if err != nil {
		return nil, classify("get share token", err)
	}
	if tok.Expired(time.Now()) {
		return nil, ErrShareExpired
	}
	return s.View(ctx, tok.CollectionID)
}

func (s *Service) collectionItems(ctx context.Context, collectionID int64) ([]models.Item, error) {
	if _, err := s.Collection(ctx, collectionID); err != nil {
		return nil, err
	}
	items, err := s.store.ListItems(ctx, collectionID)
	if err != nil {
		return nil, classify("list items "+strconv.FormatInt(collectionID, 10), err)
	}
	return items, nil
}
