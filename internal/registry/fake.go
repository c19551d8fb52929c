package registry

import (
	"context"
	"sync"

	"github.com/srgulbay/mikrocoach/pkg/models"
)

type fakeKey struct {
	itemType models.ItemType
	itemID   int64
}

// Fake is an in-memory Resolver used in tests and when no content
// service is configured.
type Fake struct {
	mu    sync.Mutex
	items map[fakeKey]*models.ReviewItem
	hints map[fakeKey]string
}

// NewFake creates an empty in-memory resolver
func NewFake() *Fake {
	return &Fake{
		items: make(map[fakeKey]*models.ReviewItem),
		hints: make(map[fakeKey]string),
	}
}

// Put registers an item payload
func (f *Fake) Put(item *models.ReviewItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[fakeKey{item.Type, item.ItemID}] = item
}

// Remove deletes an item, simulating content removed after scheduling
func (f *Fake) Remove(itemType models.ItemType, itemID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, fakeKey{itemType, itemID})
}

// Resolve implements Resolver
func (f *Fake) Resolve(_ context.Context, itemType models.ItemType, itemID int64) (*models.ReviewItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[fakeKey{itemType, itemID}]
	if !ok {
		return nil, ErrItemNotFound
	}
	return item, nil
}

// Annotate implements Resolver
func (f *Fake) Annotate(_ context.Context, itemType models.ItemType, itemID int64, hint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[fakeKey{itemType, itemID}]; !ok {
		return ErrItemNotFound
	}
	f.hints[fakeKey{itemType, itemID}] = hint
	return nil
}

// Hint returns the last hint recorded for an item
func (f *Fake) Hint(itemType models.ItemType, itemID int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hints[fakeKey{itemType, itemID}]
}
