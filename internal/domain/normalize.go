package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Unknown is the sentinel used where a field cannot be resolved from
// metadata. Records are conservatively kept with sentinel values rather
// than dropped.
const Unknown = "Unknown"

// coreServiceFields are promoted to first-class Service attributes;
// everything else lands in the metadata bag.
var coreServiceFields = map[string]struct{}{
	"id":            {},
	"name":          {},
	"description":   {},
	"latitude":      {},
	"longitude":     {},
	"address":       {},
	"phone_numbers": {},
	"email":         {},
	"metadata":      {},
	"last_updated":  {},
}

// ServiceFromMetadata converts a retrieval-time metadata map into the
// canonical Service shape. Upstream sources disagree on encoding (plain
// values, JSON strings, nested objects), so every field goes through a
// tolerant parse; malformed values become documented sentinels instead of
// errors.
func ServiceFromMetadata(metadata map[string]any) Service {
	lat, lon := ParseCoordinates(metadata)

	return Service{
		ID:           stringField(metadata, "id", "0"),
		Name:         stringField(metadata, "name", "Unknown Service"),
		Description:  stringField(metadata, "description", "No description available"),
		Latitude:     lat,
		Longitude:    lon,
		Address:      parseAddress(metadata["address"]),
		PhoneNumbers: parsePhoneNumbers(metadata["phone_numbers"]),
		Email:        stringField(metadata, "email", ""),
		Metadata:     extraMetadata(metadata),
		LastUpdated:  ParseLastUpdated(metadata["last_updated"]),
	}
}

// ParseCoordinates extracts latitude and longitude from metadata.
// Missing, malformed, or out-of-range values yield (0, 0).
func ParseCoordinates(metadata map[string]any) (float64, float64) {
	lat, latOK := floatValue(metadata["latitude"])
	lon, lonOK := floatValue(metadata["longitude"])
	if !latOK || !lonOK {
		return 0, 0
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0
	}
	return lat, lon
}

func stringField(metadata map[string]any, key, fallback string) string {
	v, ok := metadata[key]
	if !ok || v == nil {
		return fallback
	}
	switch s := v.(type) {
	case string:
		if s == "" {
			return fallback
		}
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}

func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// decodeJSONField decodes a possibly JSON-encoded value into a generic
// structure. Non-string values pass through unchanged; undecodable strings
// are returned as-is.
func decodeJSONField(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return s
	}
	return decoded
}

func parseAddress(v any) Address {
	fallback := Address{
		Street1:  Unknown,
		City:     Unknown,
		Province: Unknown,
		Country:  "Canada",
	}

	if v == nil {
		return fallback
	}

	m, ok := decodeJSONField(v).(map[string]any)
	if !ok {
		return fallback
	}

	addr := Address{
		Street1:    addressField(m, "street1", Unknown),
		Street2:    addressField(m, "street2", ""),
		City:       addressField(m, "city", Unknown),
		Province:   addressField(m, "province", Unknown),
		PostalCode: addressField(m, "postal_code", ""),
		Country:    addressField(m, "country", "Canada"),
	}
	return addr
}

func addressField(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func parsePhoneNumbers(v any) []PhoneNumber {
	unknown := []PhoneNumber{{Number: Unknown}}
	if v == nil {
		return unknown
	}

	var entries []any
	switch decoded := decodeJSONField(v).(type) {
	case []any:
		entries = decoded
	case map[string]any:
		entries = []any{decoded}
	default:
		return unknown
	}

	var phones []PhoneNumber
	for _, entry := range entries {
		if p, ok := parsePhone(entry); ok {
			phones = append(phones, p)
		}
	}
	if len(phones) == 0 {
		return unknown
	}
	return phones
}

func parsePhone(v any) (PhoneNumber, bool) {
	m, ok := decodeJSONField(v).(map[string]any)
	if !ok {
		return PhoneNumber{}, false
	}

	number := strings.TrimSpace(stringField(m, "number", ""))
	if number == "" {
		return PhoneNumber{}, false
	}

	extension := strings.TrimSpace(stringField(m, "extension", ""))
	if extension == "" && strings.Contains(strings.ToLower(number), "ext") {
		number, extension = splitNumberExtension(number)
	}

	return PhoneNumber{
		Number:      number,
		Type:        strings.TrimSpace(stringField(m, "type", "")),
		Name:        strings.TrimSpace(stringField(m, "name", "")),
		Description: strings.TrimSpace(stringField(m, "description", "")),
		Extension:   extension,
	}, true
}

// splitNumberExtension splits "555-0100 ext 12" into number and extension.
func splitNumberExtension(number string) (string, string) {
	idx := strings.Index(strings.ToLower(number), "ext")
	if idx < 0 {
		return number, ""
	}
	return strings.TrimSpace(number[:idx]), strings.TrimSpace(number[idx+3:])
}

// TruncateWords bounds text to at most n whitespace-separated words,
// collapsing runs of whitespace. Non-positive n returns the text unchanged.
func TruncateWords(text string, n int) string {
	if n <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ")
}

// ParseLastUpdated parses the last_updated metadata field. Unparseable or
// missing values yield nil; consumers treat nil as the oldest possible time.
func ParseLastUpdated(v any) *time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func extraMetadata(metadata map[string]any) map[string]any {
	extra := make(map[string]any)
	for key, value := range metadata {
		if _, core := coreServiceFields[key]; core || value == nil {
			continue
		}
		extra[key] = decodeJSONField(value)
	}
	return extra
}
