package cart

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/solmercado/storefront-core/pkg/kv"
	"github.com/solmercado/storefront-core/pkg/logger"
)

// StorageKey is the fixed key the serialized line sequence lives under.
const StorageKey = "cart:lines"

// Store is the single source of truth for the device-resident cart.
// Mutations always succeed locally; durable persistence is best-effort
// and failures are logged rather than surfaced to the caller.
type Store struct {
	mu    sync.Mutex
	lines []Line
	open  bool

	storage kv.Store
	log     *logger.Logger
	subs    []func()
	now     func() time.Time
}

// StoreParams groups dependencies for the cart store.
type StoreParams struct {
	Storage kv.Store
	Logger  *logger.Logger
	Now     func() time.Time
}

// NewStore builds a cart store backed by the provided storage.
func NewStore(params StoreParams) (*Store, error) {
	if params.Storage == nil {
		return nil, errors.New("cart storage is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		storage: params.Storage,
		log:     params.Logger,
		now:     now,
	}, nil
}

// Load rehydrates the line sequence from durable storage. A missing key
// means a fresh cart; a corrupt payload is logged and treated as empty
// rather than poisoning startup.
func (s *Store) Load(ctx context.Context) error {
	raw, err := s.storage.Get(ctx, StorageKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil
		}
		return err
	}

	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		s.log.Warn(ctx, "discarding unreadable persisted cart")
		return nil
	}
	sortLines(lines)

	s.mu.Lock()
	s.lines = lines
	s.mu.Unlock()
	s.notify()
	return nil
}

// AddItem inserts a line for the product or increments the existing one.
// Quantities below one are clamped to one at this boundary.
func (s *Store) AddItem(ctx context.Context, product ProductSnapshot, quantity int) {
	if strings.TrimSpace(product.ID) == "" {
		s.log.Warn(ctx, "ignoring cart add with empty product id")
		return
	}
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	found := false
	for i := range s.lines {
		if s.lines[i].ProductID == product.ID {
			s.lines[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		s.lines = append(s.lines, Line{
			ProductID: product.ID,
			Product:   product,
			Quantity:  quantity,
			AddedAt:   s.now().UTC(),
		})
		sortLines(s.lines)
	}
	snapshot := s.copyLinesLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.notify()
}

// RemoveItem deletes the line if present; no-op otherwise.
func (s *Store) RemoveItem(ctx context.Context, productID string) {
	s.mu.Lock()
	kept := s.lines[:0]
	removed := false
	for _, line := range s.lines {
		if line.ProductID == productID {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	s.lines = kept
	snapshot := s.copyLinesLocked()
	s.mu.Unlock()

	if !removed {
		return
	}
	s.persist(ctx, snapshot)
	s.notify()
}

// UpdateQuantity overwrites the line's quantity; zero or negative values
// remove the line instead, so a quantity below one is never stored.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(ctx, productID)
		return
	}

	s.mu.Lock()
	updated := false
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			s.lines[i].Quantity = quantity
			updated = true
			break
		}
	}
	snapshot := s.copyLinesLocked()
	s.mu.Unlock()

	if !updated {
		return
	}
	s.persist(ctx, snapshot)
	s.notify()
}

// Clear empties the line sequence. Used on logout and before rehydration.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.lines = nil
	s.mu.Unlock()

	if err := s.storage.Del(ctx, StorageKey); err != nil {
		s.log.Error(ctx, "clearing persisted cart", err)
	}
	s.notify()
}

// Replace swaps the whole line sequence for the server's view in one
// step, preserving the replace-not-merge semantics of the fetch path.
func (s *Store) Replace(ctx context.Context, lines []Line) {
	copied := make([]Line, len(lines))
	copy(copied, lines)
	sortLines(copied)

	s.mu.Lock()
	s.lines = copied
	snapshot := s.copyLinesLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.notify()
}

// Lines returns a copy of the current line sequence, ordered by product
// ID ascending.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLinesLocked()
}

// TotalItems is the sum of all line quantities.
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, line := range s.lines {
		total += line.Quantity
	}
	return total
}

// TotalPrice sums snapshot prices (sale price when present) times
// quantity across all lines.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, line := range s.lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// Contains reports whether the product has a line in the cart.
func (s *Store) Contains(productID string) bool {
	return s.Quantity(productID) > 0
}

// Quantity returns the line quantity for the product, zero when absent.
func (s *Store) Quantity(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range s.lines {
		if line.ProductID == productID {
			return line.Quantity
		}
	}
	return 0
}

// ToggleOpen flips the transient drawer flag. Not persisted.
func (s *Store) ToggleOpen() {
	s.mu.Lock()
	s.open = !s.open
	s.mu.Unlock()
}

// SetOpen sets the transient drawer flag. Not persisted.
func (s *Store) SetOpen(open bool) {
	s.mu.Lock()
	s.open = open
	s.mu.Unlock()
}

// IsOpen reports the transient drawer flag.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Subscribe registers a callback invoked after every line mutation. The
// callback runs on the mutating goroutine and must not block.
func (s *Store) Subscribe(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *Store) copyLinesLocked() []Line {
	copied := make([]Line, len(s.lines))
	copy(copied, s.lines)
	return copied
}

func (s *Store) persist(ctx context.Context, lines []Line) {
	payload, err := json.Marshal(lines)
	if err != nil {
		s.log.Error(ctx, "marshaling cart for persistence", err)
		return
	}
	if err := s.storage.Set(ctx, StorageKey, string(payload)); err != nil {
		s.log.Error(ctx, "persisting cart", err)
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}
