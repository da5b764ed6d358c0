package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/shelver/internal/models"
	"github.com/lehigh-university-libraries/shelver/internal/storage"
)

// ScanRequest asks for an item to be placed at a location. Column is optional.
type ScanRequest struct {
	CollectionID int64  `json:"collectionId"`
	Serial       string `json:"serial"`
	Section      string `json:"section"`
	Row          int    `json:"row"`
	Column       *int   `json:"column,omitempty"`
}

// Placement returns the requested location
func (r ScanRequest) Placement() models.Placement {
	return models.Placement{Section: r.Section, Row: r.Row, Column: r.Column}
}

// ScanResult is the outcome of a successful scan
type ScanResult struct {
	Item *models.Item `json:"item"`
}

// Summary renders the result as a one-line status message
func (r ScanResult) Summary() string {
	if r.Item == nil || r.Item.Placement == nil {
		return "Scan recorded"
	}
	return fmt.Sprintf("Placed %s at %s", r.Item.Serial, r.Item.Placement)
}

// Placer commits scan-time placements, one location per item
type Placer struct {
	store *storage.Store
	now   func() time.Time
}

// NewPlacer creates a placer over store
func NewPlacer(store *storage.Store) *Placer {
	return &Placer{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Scan places the item identified by req.Serial. The existence, already-placed
// and location checks run in the same transaction as the write.
func (p *Placer) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	req.Serial = strings.TrimSpace(req.Serial)
	req.Section = strings.TrimSpace(req.Section)
	if err := validateScan(req); err != nil {
		return nil, err
	}
	loc := req.Placement()

	var placed *models.Item
	err := p.store.WithCollectionTx(ctx, req.CollectionID, func(tx *storage.Tx) error {
		item, err := tx.GetItemBySerial(ctx, req.Serial)
		if errors.Is(err, storage.ErrNotFound) {
			return &NotFoundError{Kind: "item", Key: req.Serial}
		}
		if err != nil {
			return err
		}
		if item.Placed() {
			return alreadyPlaced(item)
		}

		if loc.Column != nil {
			holder, err := tx.FindPlacedAt(ctx, loc.Section, loc.Row, *loc.Column)
			switch {
			case err == nil:
				return &LocationConflictError{Location: loc, Serial: holder.Serial}
			case !errors.Is(err, storage.ErrNotFound):
				return err
			}
		}

		ok, err := tx.PlaceItem(ctx, item.ID, loc, p.now())
		if errors.Is(err, storage.ErrLocationTaken) {
			return &LocationConflictError{Location: loc}
		}
		if err != nil {
			return err
		}
		if !ok {
			current, err := tx.GetItem(ctx, item.ID)
			if err != nil {
				return err
			}
			return alreadyPlaced(current)
		}

		placed, err = tx.GetItem(ctx, item.ID)
		return err
	})
	if err != nil {
		logRejectedScan(req, err)
		return nil, classify("scan", err)
	}

	slog.Info("Item placed",
		"collection_id", req.CollectionID,
		"serial", placed.Serial,
		"location", loc.String())
	return &ScanResult{Item: placed}, nil
}

func validateScan(req ScanRequest) error {
	switch {
	case req.Serial == "":
		return invalid("serial", -1, "is required")
	case req.Section == "":
		return invalid("section", -1, "is required")
	case req.Row < 1:
		return invalid("row", -1, "must be at least 1")
	case req.Row > models.MaxRow:
		return invalid("row", -1, fmt.Sprintf("must be at most %d", models.MaxRow))
	case req.Column != nil && *req.Column < 1:
		return invalid("column", -1, "must be at least 1")
	case req.Column != nil && *req.Column > models.MaxColumn:
		return invalid("column", -1, fmt.Sprintf("must be at most %d", models.MaxColumn))
	}
	return nil
}

func alreadyPlaced(item *models.Item) error {
	e := &AlreadyPlacedError{Serial: item.Serial}
	if item.Placement != nil {
		e.Placement = *item.Placement
	}
	return e
}

func logRejectedScan(req ScanRequest, err error) {
	var nf *NotFoundError
	var ap *AlreadyPlacedError
	var lc *LocationConflictError
	switch {
	case errors.As(err, &nf), errors.As(err, &ap):
		slog.Debug("Scan rejected", "collection_id", req.CollectionID, "serial", req.Serial, "err", err)
	case errors.As(err, &lc):
		slog.Warn("Scan rejected", "collection_id", req.CollectionID, "serial", req.Serial, "err", err)
	}
}
