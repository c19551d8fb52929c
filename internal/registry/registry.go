// Package registry resolves opaque (item type, item id) pairs into
// reviewable content payloads. Content itself lives in the external
// content service; the coach only reads through this port.
package registry

import (
	"context"
	"errors"

	"github.com/srgulbay/mikrocoach/pkg/models"
)

// ErrItemNotFound is returned when the content behind an entry no
// longer exists. Callers skip such entries rather than failing a batch.
var ErrItemNotFound = errors.New("item not found")

// Resolver is the read contract against the content service.
type Resolver interface {
	// Resolve returns the payload for one item, or ErrItemNotFound.
	Resolve(ctx context.Context, itemType models.ItemType, itemID int64) (*models.ReviewItem, error)

	// Annotate forwards a classification hint (e.g. an exam category)
	// for an item. Hints never affect scheduling state.
	Annotate(ctx context.Context, itemType models.ItemType, itemID int64, hint string) error
}
