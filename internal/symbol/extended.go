package symbol

import "strings"

// Extended adds bookkeeping attributes to Symbol for curated collections:
// watchlist flags, jurisdiction, strategy notes. Region is derived from the
// jurisdiction and never set directly.
type Extended struct {
	Symbol `yaml:",inline"`

	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
	Watch            bool     `json:"watch,omitempty" yaml:"watch,omitempty"`
	Delisted         bool     `json:"delisted,omitempty" yaml:"delisted,omitempty"`
	Jurisdiction     string   `json:"jurisdiction,omitempty" yaml:"jurisdiction,omitempty"`
	ISIN             string   `json:"isin,omitempty" yaml:"isin,omitempty"`
	Strategy         []string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	StrategyComments string   `json:"strategy_comments,omitempty" yaml:"strategy_comments,omitempty"`

	Region      string `json:"region,omitempty" yaml:"-"`
	RegionLabel string `json:"region_name,omitempty" yaml:"-"`
}

// NewExtended applies the Symbol defaults plus the extended ones: jurisdiction
// falls back to US, the country default applies regardless of type, and the
// region is derived from the jurisdiction.
func NewExtended(e Extended) Extended {
	e.Symbol = New(e.Symbol)
	if e.Country == "" {
		e.Country = DefaultCountry
	}
	if e.Jurisdiction == "" {
		e.Jurisdiction = "US"
	}
	if e.ISIN != "" {
		e.Symbol = e.Symbol.MergeAliases(e.ISIN)
	}
	e.Region = RegionOf(e.Jurisdiction)
	e.RegionLabel = RegionName(e.Region)
	return e
}

// StrategyString joins the strategy entries, appending the comments when set.
func (e Extended) StrategyString() string {
	res := strings.Join(e.Strategy, ", ")
	if e.StrategyComments != "" {
		if res != "" {
			res += " - "
		}
		res += e.StrategyComments
	}
	return res
}
