package pixel

// Canonical event name to vendor event name. An empty string is an explicit
// "no mapping" marker and behaves exactly like a missing key.

var facebookEvents = map[EventName]string{
	PageViewed:             "PageView",
	ProductViewed:          "ViewContent",
	ProductAddedToCart:     "AddToCart",
	ProductRemovedFromCart: "",
	CheckoutStarted:        "InitiateCheckout",
	CheckoutCompleted:      "Purchase",
	SearchSubmitted:        "Search",
	ProductAddedToWishlist: "AddToWishlist",
	CustomerRegistered:     "CompleteRegistration",
	ContactSubmitted:       "Contact",
	CartUpdated:            "AddToCart",
}

var tiktokEvents = map[EventName]string{
	PageViewed:             "Pageview",
	ProductViewed:          "ViewContent",
	ProductAddedToCart:     "AddToCart",
	CheckoutStarted:        "InitiateCheckout",
	CheckoutCompleted:      "CompletePayment",
	SearchSubmitted:        "Search",
	ProductAddedToWishlist: "AddToWishlist",
	CustomerRegistered:     "CompleteRegistration",
	ContactSubmitted:       "Contact",
}

var snapchatEvents = map[EventName]string{
	PageViewed:             "PAGE_VIEW",
	ProductViewed:          "VIEW_CONTENT",
	ProductAddedToCart:     "ADD_CART",
	CheckoutStarted:        "START_CHECKOUT",
	CheckoutCompleted:      "PURCHASE",
	SearchSubmitted:        "SEARCH",
	ProductAddedToWishlist: "ADD_TO_WISHLIST",
	CustomerRegistered:     "SIGN_UP",
}

var googleEvents = map[EventName]string{
	PageViewed:             "page_view",
	ProductViewed:          "view_item",
	ProductAddedToCart:     "add_to_cart",
	ProductRemovedFromCart: "remove_from_cart",
	CheckoutStarted:        "begin_checkout",
	CheckoutCompleted:      "purchase",
	SearchSubmitted:        "search",
	ProductAddedToWishlist: "add_to_wishlist",
	CustomerRegistered:     "sign_up",
}

// MapperFunc reshapes canonical event data into a vendor payload.
type MapperFunc func(name EventName, data map[string]any) Payload

type route struct {
	events map[EventName]string
	mapper MapperFunc
}

var routes = map[Vendor]route{
	Facebook: {events: facebookEvents, mapper: mapFacebook},
	TikTok:   {events: tiktokEvents, mapper: mapTikTok},
	Snapchat: {events: snapchatEvents, mapper: mapSnapchat},
	Google:   {events: googleEvents, mapper: mapGoogle},
}

// VendorEventName returns the vendor's event name for n. The second result
// is false when the vendor has no mapping for n.
func VendorEventName(v Vendor, n EventName) (string, bool) {
	r, ok := routes[v]
	if !ok {
		return "", false
	}
	name := r.events[n]
	return name, name != ""
}
