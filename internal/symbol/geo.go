package symbol

import "strings"

// jurisdictionToRegion buckets two-letter jurisdictions into coarse regions.
// US, CH, CN and EU keep their own bucket; everything unknown lands in OT.
var jurisdictionToRegion = map[string]string{
	"US": "US",
	"CH": "CH",
	"CN": "CN",
	"EU": "EU",

	"AT": "EU", "BE": "EU", "DE": "EU", "DK": "EU", "ES": "EU", "FI": "EU",
	"FR": "EU", "GB": "EU", "IE": "EU", "IT": "EU", "LU": "EU", "NL": "EU",
	"NO": "EU", "PT": "EU", "SE": "EU",

	"HK": "AS", "ID": "AS", "IN": "AS", "JP": "AS", "KR": "AS", "MY": "AS",
	"SG": "AS", "TH": "AS", "TW": "AS", "VN": "AS",

	"CA": "NA", "MX": "NA",
	"AR": "SA", "BR": "SA", "CL": "SA",
	"AU": "OC", "NZ": "OC",

	"IRRELEVANT": "OT",
	"SEVERAL":    "OT",
	"UNKNOWN":    "OT",
}

// regionNames gives display names for the region buckets.
var regionNames = map[string]string{
	"US": "United States",
	"CH": "Switzerland",
	"CN": "China",
	"EU": "Europe",
	"AS": "Asia sans China",
	"NA": "North America",
	"SA": "South America",
	"OC": "Oceania",
	"OT": "Other",
}

// RegionOf maps a jurisdiction to its region bucket, OT when unknown.
func RegionOf(jurisdiction string) string {
	if r, ok := jurisdictionToRegion[strings.ToUpper(strings.TrimSpace(jurisdiction))]; ok {
		return r
	}
	return "OT"
}

// RegionName returns the display name of a region bucket.
func RegionName(region string) string {
	if n, ok := regionNames[region]; ok {
		return n
	}
	return region
}
