package utils

import (
	"strconv"
	"strings"
)

// postcodeRange maps a contiguous block of Dutch 4-digit postcode prefixes
// to a province. Ranges are inclusive on both ends.
type postcodeRange struct {
	from, to int
	province string
}

// Coarse mapping of the Dutch postcode space to provinces. Postcodes are
// assigned in contiguous regional blocks, so a range table is enough for
// campaign geo-targeting purposes.
var postcodeRanges = []postcodeRange{
	{1000, 1299, "Noord-Holland"},
	{1300, 1399, "Flevoland"},
	{1400, 2199, "Noord-Holland"},
	{2200, 3399, "Zuid-Holland"},
	{3400, 3999, "Utrecht"},
	{4000, 4199, "Gelderland"},
	{4200, 4299, "Zuid-Holland"},
	{4300, 4599, "Zeeland"},
	{4600, 5999, "Noord-Brabant"},
	{6000, 6499, "Limburg"},
	{6500, 7399, "Gelderland"},
	{7400, 7799, "Overijssel"},
	{7800, 7999, "Drenthe"},
	{8000, 8199, "Overijssel"},
	{8200, 8399, "Flevoland"},
	{8400, 9299, "Friesland"},
	{9300, 9499, "Drenthe"},
	{9500, 9999, "Groningen"},
}

// LookupProvince derives the Dutch province from a postal code such as
// "1012AB", "1012 AB" or "1012". It is a pure lookup with no state; the
// second return value is false when the code cannot be mapped.
func LookupProvince(postalCode string) (string, bool) {
	digits := strings.TrimSpace(postalCode)
	if len(digits) < 4 {
		return "", false
	}
	num, err := strconv.Atoi(digits[:4])
	if err != nil {
		return "", false
	}
	for _, r := range postcodeRanges {
		if num >= r.from && num <= r.to {
			return r.province, true
		}
	}
	return "", false
}

// LookupProvinceAny returns the province of the first mappable postal code
// in the list, or "" when none maps.
func LookupProvinceAny(postalCodes []string) string {
	for _, pc := range postalCodes {
		if province, ok := LookupProvince(pc); ok {
			return province
		}
	}
	return ""
}
