package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/shelver/internal/models"
	"github.com/lehigh-university-libraries/shelver/internal/storage"
)

// ImportResult reports how much of a batch was new
type ImportResult struct {
	Inserted  int `json:"inserted"`
	Submitted int `json:"submitted"`
}

// Skipped returns the number of submitted records that were already present
func (r ImportResult) Skipped() int {
	return r.Submitted - r.Inserted
}

// Summary renders the result as a one-line status message
func (r ImportResult) Summary() string {
	if r.Skipped() == 0 {
		return fmt.Sprintf("Imported %d items", r.Inserted)
	}
	return fmt.Sprintf("Imported %d items (%d duplicates skipped)", r.Inserted, r.Skipped())
}

// Importer merges bulk batches into a collection without creating duplicates
type Importer struct {
	store *storage.Store
}

// NewImporter creates an importer over store
func NewImporter(store *storage.Store) *Importer {
	return &Importer{store: store}
}

// Import validates every record, then inserts the ones whose serial is not yet
// in the collection. A malformed record rejects the whole batch.
func (im *Importer) Import(ctx context.Context, collectionID int64, records []models.ImportRecord) (*ImportResult, error) {
	candidates, err := normalizeRecords(records)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Submitted: len(records)}
	err = im.store.WithCollectionTx(ctx, collectionID, func(tx *storage.Tx) error {
		exists, err := tx.CollectionExists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return collectionNotFound(collectionID)
		}
		if len(candidates) == 0 {
			return nil
		}

		seen, err := tx.SerialSet(ctx)
		if err != nil {
			return err
		}
		fresh := make([]models.ImportRecord, 0, len(candidates))
		for _, r := range candidates {
			if _, dup := seen[r.Serial]; dup {
				continue
			}
			seen[r.Serial] = struct{}{}
			fresh = append(fresh, r)
		}

		result.Inserted, err = tx.InsertItems(ctx, fresh)
		return err
	})
	if err != nil {
		return nil, classify("import batch", err)
	}

	slog.Info("Imported batch",
		"collection_id", collectionID,
		"submitted", result.Submitted,
		"inserted", result.Inserted)
	return result, nil
}

func normalizeRecords(records []models.ImportRecord) ([]models.ImportRecord, error) {
	out := make([]models.ImportRecord, len(records))
	for i, r := range records {
		pkg := strings.TrimSpace(r.PackageID)
		serial := strings.TrimSpace(r.Serial)
		if pkg == "" {
			return nil, invalid("package_id", i, "is required")
		}
		if serial == "" {
			return nil, invalid("serial", i, "is required")
		}
		out[i] = models.ImportRecord{PackageID: pkg, Serial: serial}
	}
	return out, nil
}

func collectionNotFound(id int64) error {
	return &NotFoundError{Kind: "collection", Key: strconv.FormatInt(id, 10)}
}

// classify passes engine errors through and wraps anything else as a StoreError
func classify(op string, err error) error {
	var (
		ve *ValidationError
		nf *NotFoundError
		ap *AlreadyPlacedError
		lc *LocationConflictError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &nf), errors.As(err, &ap), errors.As(err, &lc):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	slog.Error("Store operation failed", "op", op, "err", err)
	return storeErr(op, err)
}
