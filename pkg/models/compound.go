package models

import "strings"

// DefaultVenue is assumed whenever a caller omits the venue.
const DefaultVenue = "hyper"

// CompoundKey builds the canonical venue-qualified symbol used for all
// position storage and price lookups: "<venue>::<SYMBOL>" with the venue
// lower-cased and the symbol upper-cased.
func CompoundKey(symbol, venue string) string {
	if venue == "" {
		venue = DefaultVenue
	}
	return strings.ToLower(venue) + "::" + strings.ToUpper(symbol)
}

// SplitCompoundKey is the inverse of CompoundKey. Keys without a separator
// are treated as bare symbols on the default venue.
func SplitCompoundKey(key string) (venue, symbol string) {
	if venue, symbol, ok := strings.Cut(key, "::"); ok {
		return strings.ToLower(venue), strings.ToUpper(symbol)
	}
	return DefaultVenue, strings.ToUpper(key)
}
