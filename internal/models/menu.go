package models

// Category represents a menu category
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MenuOption is an option definition attached to a menu item
type MenuOption struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	IsRequired    bool    `json:"is_required"`
	MaxSelections int     `json:"max_selections,omitempty"`
	Price         float64 `json:"price"`
}

// MenuItem represents an item from the catalog. The catalog owns these;
// the ordering side treats them as read-only.
type MenuItem struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Price    float64      `json:"price"`
	Category string       `json:"category"`
	ImageURL string       `json:"image_url,omitempty"`
	Options  []MenuOption `json:"options,omitempty"`
}

// SelectedOption is a snapshot of a menu option taken at selection time.
// It is copied, not referenced, so later catalog edits never change the
// price of an already placed order.
type SelectedOption struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// GCashPayee holds the payee details shown before a GCash payment
type GCashPayee struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
}
