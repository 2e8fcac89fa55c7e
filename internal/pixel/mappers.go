package pixel

// DefaultCurrency is applied to every monetary payload whose event data does
// not carry a currency.
const DefaultCurrency = "SAR"

func mapFacebook(name EventName, data map[string]any) Payload {
	p := Payload{}
	switch name {
	case ProductViewed:
		p["content_type"] = "product"
		p.setList("content_ids", field(data, "product_id"))
		p.set("content_name", field(data, "product_name"))
		p.set("value", field(data, "product_price"))
		p["currency"] = currency(data)
	case ProductAddedToCart, CartUpdated:
		p["content_type"] = "product"
		p.setList("content_ids", field(data, "response", "product_id"))
		p.set("value", field(data, "response", "price"))
		p["currency"] = currency(data)
	case CheckoutCompleted:
		p["content_type"] = "product"
		p.set("value", field(data, "response", "total"))
		p["currency"] = currency(data)
	case SearchSubmitted:
		p.set("search_string", field(data, "query"))
	}
	return p
}

func mapTikTok(name EventName, data map[string]any) Payload {
	p := Payload{}
	switch name {
	case ProductViewed:
		p["content_type"] = "product"
		p.set("content_id", field(data, "product_id"))
		p.set("content_name", field(data, "product_name"))
		p.set("value", field(data, "product_price"))
		p["currency"] = currency(data)
	case ProductAddedToCart:
		p["content_type"] = "product"
		p.set("content_id", field(data, "response", "product_id"))
		p.set("value", field(data, "response", "price"))
		p["currency"] = currency(data)
	case CheckoutCompleted:
		p.set("value", field(data, "response", "total"))
		p["currency"] = currency(data)
	case SearchSubmitted:
		p.set("query", field(data, "query"))
	}
	return p
}

func mapSnapchat(name EventName, data map[string]any) Payload {
	p := Payload{}
	switch name {
	case ProductViewed:
		p.setList("item_ids", field(data, "product_id"))
		p.set("price", field(data, "product_price"))
		p["currency"] = currency(data)
	case ProductAddedToCart:
		p.setList("item_ids", field(data, "response", "product_id"))
		p.set("price", field(data, "response", "price"))
		p["currency"] = currency(data)
	case CheckoutCompleted:
		p.set("price", field(data, "response", "total"))
		p["currency"] = currency(data)
		p.set("transaction_id", field(data, "response", "order_id"))
	case SearchSubmitted:
		p.set("search_string", field(data, "query"))
	}
	return p
}

func mapGoogle(name EventName, data map[string]any) Payload {
	p := Payload{}
	switch name {
	case ProductViewed:
		item := Payload{}
		item.set("item_id", field(data, "product_id"))
		item.set("item_name", field(data, "product_name"))
		item.set("price", field(data, "product_price"))
		p["items"] = []Payload{item}
		p["currency"] = currency(data)
		p.set("value", field(data, "product_price"))
	case ProductAddedToCart, ProductRemovedFromCart:
		item := Payload{}
		item.set("item_id", field(data, "response", "product_id"))
		item.set("price", field(data, "response", "price"))
		p["items"] = []Payload{item}
		p["currency"] = currency(data)
		p.set("value", field(data, "response", "price"))
	case CheckoutCompleted:
		p.set("transaction_id", field(data, "response", "order_id"))
		p.set("value", field(data, "response", "total"))
		p["currency"] = currency(data)
	case SearchSubmitted:
		p.set("search_term", field(data, "query"))
	}
	return p
}

// field walks data along path. A missing key, a nil value, or a non-object
// intermediate all read as absent.
func field(data map[string]any, path ...string) any {
	var cur any = data
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[key]
	}
	return cur
}

// currency returns the event's currency code, or DefaultCurrency when it is
// missing, empty or not a string.
func currency(data map[string]any) string {
	if c, ok := field(data, "currency").(string); ok && c != "" {
		return c
	}
	return DefaultCurrency
}

func (p Payload) set(key string, v any) {
	if v != nil {
		p[key] = v
	}
}

func (p Payload) setList(key string, v any) {
	if v != nil {
		p[key] = []any{v}
	}
}
