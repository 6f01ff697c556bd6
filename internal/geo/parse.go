package geo

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseStoredLocation normalizes the legacy storage encodings of a location
// into a Coordinate. Accepted forms:
//
//	"(lng,lat)"                          postgres point text
//	"POINT(lng lat)"                     WKT
//	{"lat":..,"lng":..}                  JSON object
//	{"latitude":..,"longitude":..}       JSON object, long field names
//
// Returns nil for anything unparseable. Callers log the raw value at warn;
// a malformed location is treated as "no location", never an error.
func ParseStoredLocation(raw string) *Coordinate {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	if strings.HasPrefix(s, "{") {
		return parseJSONLocation(s)
	}

	upper := strings.ToUpper(s)
	if strings.HasPrefix(upper, "POINT") {
		return parseWKTPoint(s)
	}

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		return parsePointText(s)
	}

	return nil
}

// FormatForStorage is the inverse of ParseStoredLocation, producing the
// canonical storage representation.
func FormatForStorage(c Coordinate) string {
	return fmt.Sprintf("POINT(%g %g)", c.Lng, c.Lat)
}

// "(lng,lat)"
func parsePointText(s string) *Coordinate {
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	parts := strings.Split(inner, ",")
	if len(parts) != 2 {
		return nil
	}

	lng, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return nil
	}

	return checkParsed(lat, lng)
}

// "POINT(lng lat)"
func parseWKTPoint(s string) *Coordinate {
	open := strings.Index(s, "(")
	close := strings.LastIndex(s, ")")
	if open < 0 || close < open {
		return nil
	}

	parts := strings.Fields(s[open+1 : close])
	if len(parts) != 2 {
		return nil
	}

	lng, err1 := strconv.ParseFloat(parts[0], 64)
	lat, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil {
		return nil
	}

	return checkParsed(lat, lng)
}

func parseJSONLocation(s string) *Coordinate {
	var obj struct {
		Lat       *float64 `json:"lat"`
		Lng       *float64 `json:"lng"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil
	}

	lat, lng := obj.Lat, obj.Lng
	if lat == nil || lng == nil {
		lat, lng = obj.Latitude, obj.Longitude
	}
	if lat == nil || lng == nil {
		return nil
	}

	return checkParsed(*lat, *lng)
}

func checkParsed(lat, lng float64) *Coordinate {
	c := Coordinate{Lat: lat, Lng: lng}
	if !c.Valid() {
		return nil
	}
	return &c
}
