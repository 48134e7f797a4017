package symbol

import (
	"sort"
	"strings"
)

// Known symbol types. Providers may return types outside this list; those are
// passed through untouched so the symbol stays usable.
const (
	TypeStock         = "stock"
	TypeETF           = "etf"
	TypeFund          = "fund"
	TypeIndex         = "index"
	TypeCertificate   = "certificate"
	TypeBond          = "bond"
	TypeCommodity     = "commodity"
	TypeCurrencyCross = "currency_cross"
	TypeCrypto        = "crypto"
)

// QueryTypeSearchObj marks symbols that carry a raw provider search object and
// re-issue the original lookup through it.
const QueryTypeSearchObj = "searchobj"

// DefaultCountry is assumed for stocks when the provider gave no country.
const DefaultCountry = "united states"

// Symbol is the normalized record every provider result is converted into.
// Constructed once per search result and immutable afterwards.
type Symbol struct {
	Name    string   `json:"name" yaml:"-"`
	Type    string   `json:"type,omitempty" yaml:"type,omitempty"`
	Country string   `json:"country,omitempty" yaml:"country,omitempty"`
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`

	// Query overrides Name as the lookup key sent back to the provider.
	Query string `json:"query,omitempty" yaml:"query,omitempty"`

	// SearchObj is the raw quote-search payload for symbols found through a
	// provider's quote search. It is kept verbatim so the original lookup can
	// be re-issued.
	SearchObj map[string]any `json:"searchobj,omitempty" yaml:"searchobj,omitempty"`

	// Source names the source the symbol came from (e.g. "investing",
	// "coingecko"). Price lookups use it to route back to the same source.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// New applies the Symbol defaults:
//   - Type inferred from the name's shape ("EUR/USD" -> currency_cross,
//     everything else -> stock) when unspecified,
//   - Country "united states" for stocks without one,
//   - Query falling back to the name,
//   - aliases deduplicated, with the name and empty strings removed.
func New(s Symbol) Symbol {
	s.Name = strings.TrimSpace(s.Name)
	if s.Type == "" {
		s.Type = inferType(s.Name)
	}
	if s.Country == "" && s.Type == TypeStock {
		s.Country = DefaultCountry
	}
	if s.Query == "" {
		s.Query = s.Name
	}
	s.Aliases = cleanAliases(s.Name, s.Aliases)
	return s
}

func inferType(name string) string {
	if strings.Count(name, "/") == 1 {
		return TypeCurrencyCross
	}
	return TypeStock
}

// QueryType reports how price lookups should interpret the symbol: "searchobj"
// when a raw search object is present, the symbol type otherwise.
func (s Symbol) QueryType() string {
	if len(s.SearchObj) > 0 {
		return QueryTypeSearchObj
	}
	return s.Type
}

// QueryString is the lookup key for price requests.
func (s Symbol) QueryString() string {
	if s.Query != "" {
		return s.Query
	}
	return s.Name
}

// Matches reports whether what refers to this symbol: case-insensitive match
// against the name and all aliases, where a candidate with an exchange suffix
// ("SIE.DE") also matches its bare form ("SIE").
func (s Symbol) Matches(what string) bool {
	w := strings.ToLower(strings.TrimSpace(what))
	if w == "" {
		return false
	}
	for _, c := range append([]string{s.Name}, s.Aliases...) {
		lc := strings.ToLower(c)
		if lc == w {
			return true
		}
		if i := strings.LastIndex(lc, "."); i > 0 && lc[:i] == w {
			return true
		}
	}
	return false
}

// cleanAliases dedupes aliases and drops chosen and empty entries.
func cleanAliases(chosen string, aliases []string) []string {
	seen := make(map[string]struct{}, len(aliases))
	out := make([]string, 0, len(aliases))
	for _, a := range aliases {
		a = strings.TrimSpace(a)
		if a == "" || a == chosen {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// MergeAliases returns a copy of the symbol with extra aliases folded in,
// keeping the dedupe invariant.
func (s Symbol) MergeAliases(extra ...string) Symbol {
	s.Aliases = cleanAliases(s.Name, append(append([]string{}, s.Aliases...), extra...))
	return s
}

// Clone returns a deep copy. SearchObj maps are copied so cached symbols
// cannot be mutated through a returned value.
func (s Symbol) Clone() Symbol {
	if s.Aliases != nil {
		s.Aliases = append([]string{}, s.Aliases...)
	}
	if s.SearchObj != nil {
		m := make(map[string]any, len(s.SearchObj))
		for k, v := range s.SearchObj {
			m[k] = v
		}
		s.SearchObj = m
	}
	return s
}

// SortByName orders symbols by name, then country, for stable output.
func SortByName(symbols []Symbol) {
	sort.Slice(symbols, func(i, j int) bool {
		if symbols[i].Name != symbols[j].Name {
			return symbols[i].Name < symbols[j].Name
		}
		return symbols[i].Country < symbols[j].Country
	})
}
