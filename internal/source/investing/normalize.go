package investing

import (
	"strconv"

	"symbolsearch/internal/source"
	"symbolsearch/internal/symbol"
)

// The tabular results are not standardized across products, so mapping rows
// to symbol attributes takes a handful of per-product rules:
//
//	etf, fund, index, certificate: name <- symbol col, query <- name col,
//	                               aliases <- {full_name, name}
//	stock:                         name <- symbol col, aliases <- {full_name, name}
//	currency_cross:                name <- name col, aliases <- {full_name}, no country
//	bond, commodity:               name <- name col, aliases <- {full_name}
//
// The isin column, when present, joins the aliases. Alias sets drop the
// chosen name and empties.

// RowsToSymbols converts tabular rows of one product (singular spelling) into
// symbols.
func RowsToSymbols(rows []TableRow, product string) []symbol.Symbol {
	out := make([]symbol.Symbol, 0, len(rows))
	for _, row := range rows {
		s := symbol.Symbol{Type: product, Source: SourceName}

		switch product {
		case symbol.TypeCurrencyCross, symbol.TypeBond, symbol.TypeCommodity:
			s.Name = row.Name
		default:
			s.Name = row.Symbol
		}
		switch product {
		case symbol.TypeETF, symbol.TypeFund, symbol.TypeIndex, symbol.TypeCertificate:
			s.Query = row.Name
		}
		if product != symbol.TypeCurrencyCross {
			s.Country = row.Country
		}

		s.Aliases = []string{row.FullName, row.Name, row.ISIN}
		out = append(out, symbol.New(s))
	}
	return out
}

// ObjsToSymbols converts quote-search objects into symbols. The raw payload
// is kept on the symbol so the original lookup can be re-issued; the query
// key is the instrument id.
func ObjsToSymbols(objs []SearchObj) []symbol.Symbol {
	out := make([]symbol.Symbol, 0, len(objs))
	for _, o := range objs {
		type_ := o.PairType
		if singular, ok := source.Singular(o.PairType); ok {
			type_ = singular
		}
		// Quote results can have types we do not officially track (e.g.
		// currencies); those pass through untouched since the instrument is
		// nevertheless accessible.
		out = append(out, symbol.New(symbol.Symbol{
			Name:      o.Symbol,
			Type:      type_,
			Country:   o.Country,
			Query:     strconv.FormatInt(o.ID, 10),
			SearchObj: o.AsMap(),
			Aliases:   []string{o.Name},
			Source:    SourceName,
		}))
	}
	return out
}
