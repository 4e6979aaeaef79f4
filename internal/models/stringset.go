package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringSet is an order-preserving set of strings persisted as a JSON array.
// Duplicates collapse on normalization; comparison is case-insensitive.
type StringSet []string

// NewStringSet normalizes values into a set: whitespace trimmed, empty entries
// dropped, duplicates collapsed (first occurrence wins).
func NewStringSet(values []string) StringSet {
	seen := make(map[string]struct{}, len(values))
	out := make(StringSet, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Contains reports whether the set holds value, ignoring case.
func (s StringSet) Contains(value string) bool {
	for _, v := range s {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

// ContainsAll reports whether every value is present in the set.
func (s StringSet) ContainsAll(values []string) bool {
	for _, v := range values {
		if !s.Contains(v) {
			return false
		}
	}
	return true
}

// ContainsAny reports whether at least one value is present in the set.
func (s StringSet) ContainsAny(values []string) bool {
	for _, v := range values {
		if s.Contains(v) {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer, storing the set as a JSON array.
func (s StringSet) Value() (driver.Value, error) {
	if s == nil {
		s = StringSet{}
	}
	data, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (s *StringSet) Scan(src interface{}) error {
	if src == nil {
		*s = StringSet{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported StringSet source type %T", src)
	}
	if len(data) == 0 {
		*s = StringSet{}
		return nil
	}
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("decode StringSet: %w", err)
	}
	*s = values
	return nil
}
