package cart

import (
	"sort"
	"strings"
	"sync"
	"time"

	"table-orders/internal/models"
)

// NoticeWindow is how long an "item added" notice stays visible.
const NoticeWindow = 2 * time.Second

// Notice is the transient message shown after adding an item. It is a UI
// affordance only and carries no correctness weight.
type Notice struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Cart accumulates line items for one device session. Entries are keyed by
// the identity key: menu item id plus the canonically sorted option ids, so
// selecting the same options in a different order merges into one entry.
type Cart struct {
	mu      sync.Mutex
	entries map[string]*models.CartItem
	keys    []string
	notice  *Notice
}

// New creates an empty cart.
func New() *Cart {
	return &Cart{
		entries: make(map[string]*models.CartItem),
	}
}

// identityKey decides whether two cart entries are the same line item.
// Options are sorted by id so key equality is order-insensitive.
func identityKey(itemID string, options []models.SelectedOption) string {
	if len(options) == 0 {
		return itemID
	}
	ids := make([]string, len(options))
	for i, opt := range options {
		ids[i] = opt.ID
	}
	sort.Strings(ids)
	return itemID + "|" + strings.Join(ids, ",")
}

// canonicalOptions returns a copy of the selection sorted by option id.
func canonicalOptions(options []models.SelectedOption) []models.SelectedOption {
	out := make([]models.SelectedOption, len(options))
	copy(out, options)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddItem merges a menu item selection into the cart. An existing entry
// with the same identity key gets its quantity incremented by one;
// otherwise a new entry with quantity 1 is inserted.
func (c *Cart) AddItem(item models.MenuItem, options []models.SelectedOption) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := identityKey(item.ID, options)
	if entry, ok := c.entries[key]; ok {
		entry.Quantity++
	} else {
		c.entries[key] = &models.CartItem{
			Item:            item,
			Quantity:        1,
			SelectedOptions: canonicalOptions(options),
		}
		c.keys = append(c.keys, key)
	}

	c.notice = &Notice{
		Message:   item.Name + " has been added to your cart!",
		ExpiresAt: time.Now().Add(NoticeWindow),
	}
}

// SetQuantity sets the quantity on the entry matching the identity key. A
// quantity below 1 removes the entry. Setting quantity on an absent key is
// a silent no-op.
func (c *Cart) SetQuantity(itemID string, quantity int, options []models.SelectedOption) {
	if quantity < 1 {
		c.RemoveItem(itemID, options)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := identityKey(itemID, options)
	if entry, ok := c.entries[key]; ok {
		entry.Quantity = quantity
	}
}

// RemoveItem deletes the entry matching the identity key; no-op if absent.
func (c *Cart) RemoveItem(itemID string, options []models.SelectedOption) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := identityKey(itemID, options)
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.keys {
		if k == key {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
}

// Clear empties the cart unconditionally.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*models.CartItem)
	c.keys = nil
}

// Items returns the cart entries in insertion order. The returned slice
// holds copies so callers cannot mutate the cart through it.
func (c *Cart) Items() []models.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]models.CartItem, 0, len(c.keys))
	for _, key := range c.keys {
		items = append(items, *c.entries[key])
	}
	return items
}

// Total recomputes the cart total from the current entries on every call.
func (c *Cart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total float64
	for _, entry := range c.entries {
		total += entry.Subtotal()
	}
	return total
}

// TotalQuantity returns the summed quantity across all entries.
func (c *Cart) TotalQuantity() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	for _, entry := range c.entries {
		n += entry.Quantity
	}
	return n
}

// Len returns the number of distinct line items.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// ActiveNotice returns the current "item added" notice if its display
// window has not elapsed.
func (c *Cart) ActiveNotice(now time.Time) (Notice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.notice == nil || now.After(c.notice.ExpiresAt) {
		return Notice{}, false
	}
	return *c.notice, true
}
