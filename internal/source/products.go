package source

// Product types come in plural (provider endpoints) and singular (symbol
// types) spellings; the tables below map between them.
var pluralToSingular = map[string]string{
	"stocks":           "stock",
	"etfs":             "etf",
	"funds":            "fund",
	"indices":          "index",
	"certificates":     "certificate",
	"bonds":            "bond",
	"commodities":      "commodity",
	"currency_crosses": "currency_cross",
	"cryptos":          "crypto",
}

var singularToPlural = map[string]string{}

func init() {
	for p, s := range pluralToSingular {
		singularToPlural[s] = p
	}
}

// Singular maps either spelling of a product to its singular form.
func Singular(product string) (string, bool) {
	if s, ok := pluralToSingular[product]; ok {
		return s, true
	}
	if _, ok := singularToPlural[product]; ok {
		return product, true
	}
	return "", false
}

// Plural maps either spelling of a product to its plural form.
func Plural(product string) (string, bool) {
	if p, ok := singularToPlural[product]; ok {
		return p, true
	}
	if _, ok := pluralToSingular[product]; ok {
		return product, true
	}
	return "", false
}

// IsValidProduct reports whether product is a known type in either spelling.
func IsValidProduct(product string) bool {
	_, ok := Singular(product)
	return ok
}

// AllProducts returns every singular product type in a stable order.
func AllProducts() []string {
	return []string{
		"stock", "etf", "fund", "index", "certificate",
		"bond", "commodity", "currency_cross", "crypto",
	}
}
