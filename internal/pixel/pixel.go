// Package pixel translates canonical storefront commerce events into the
// event names and payloads expected by each advertising vendor.
package pixel

import "strings"

// Vendor identifies a third-party ad-tracking destination.
type Vendor string

const (
	Facebook Vendor = "facebook"
	TikTok   Vendor = "tiktok"
	Snapchat Vendor = "snapchat"
	Google   Vendor = "google"
)

// Vendors lists every supported vendor in dispatch order.
var Vendors = []Vendor{Facebook, TikTok, Snapchat, Google}

// ParseVendor returns the vendor for key, or false if key is not one of the
// closed set. Keys are matched exactly.
func ParseVendor(key string) (Vendor, bool) {
	switch v := Vendor(key); v {
	case Facebook, TikTok, Snapchat, Google:
		return v, true
	}
	return "", false
}

// EventName is a canonical, vendor-neutral commerce event name.
type EventName string

const (
	PageViewed             EventName = "page_viewed"
	ProductViewed          EventName = "product_viewed"
	ProductAddedToCart     EventName = "product_added_to_cart"
	ProductRemovedFromCart EventName = "product_removed_from_cart"
	CartUpdated            EventName = "cart_updated"
	CheckoutStarted        EventName = "checkout_started"
	CheckoutCompleted      EventName = "checkout_completed"
	SearchSubmitted        EventName = "search_submitted"
	ProductAddedToWishlist EventName = "product_added_to_wishlist"
	CustomerRegistered     EventName = "customer_registered"
	ContactSubmitted       EventName = "contact_submitted"
)

var eventNames = map[EventName]struct{}{
	PageViewed:             {},
	ProductViewed:          {},
	ProductAddedToCart:     {},
	ProductRemovedFromCart: {},
	CartUpdated:            {},
	CheckoutStarted:        {},
	CheckoutCompleted:      {},
	SearchSubmitted:        {},
	ProductAddedToWishlist: {},
	CustomerRegistered:     {},
	ContactSubmitted:       {},
}

// Known reports whether n belongs to the canonical enumeration.
func (n EventName) Known() bool {
	_, ok := eventNames[n]
	return ok
}

// Event is a canonical event as fired by the storefront platform.
type Event struct {
	Name EventName      `json:"name"`
	Data map[string]any `json:"data"`
}

// Payload is a vendor-shaped event payload.
type Payload map[string]any

// Settings holds the resolved per-merchant vendor identifiers.
type Settings struct {
	PixelName   string
	Identifiers map[Vendor]string
}

// Identifier returns the trimmed identifier for v and whether v is
// configured. Blank identifiers count as unconfigured.
func (s Settings) Identifier(v Vendor) (string, bool) {
	id := strings.TrimSpace(s.Identifiers[v])
	return id, id != ""
}

// Configured returns the configured vendors in dispatch order.
func (s Settings) Configured() []Vendor {
	var out []Vendor
	for _, v := range Vendors {
		if _, ok := s.Identifier(v); ok {
			out = append(out, v)
		}
	}
	return out
}

// Dispatch is one outbound vendor tracking call.
type Dispatch struct {
	Vendor    Vendor  `json:"vendor"`
	EventName string  `json:"event_name"`
	Payload   Payload `json:"payload"`
}
