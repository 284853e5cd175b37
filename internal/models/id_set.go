package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// IDSet is a sorted, de-duplicated set of positive ids persisted as a JSON array.
// NULL and an empty array both mean "no restriction".
type IDSet []int64

// NewIDSet normalises ids into a set, dropping non-positive values.
func NewIDSet(ids ...int64) IDSet {
	set := make(IDSet, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		set = append(set, id)
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return set
}

// Contains reports whether id is a member of the set.
func (s IDSet) Contains(id int64) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= id })
	return i < len(s) && s[i] == id
}

// Empty reports whether the set carries no ids.
func (s IDSet) Empty() bool { return len(s) == 0 }

// Value implements driver.Valuer.
func (s IDSet) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal([]int64(NewIDSet(s...)))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner. Elements may be JSON numbers or numeric strings.
func (s *IDSet) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("id set: unsupported source %T", src)
	}
	if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
		*s = nil
		return nil
	}
	return s.UnmarshalJSON(raw)
}

// UnmarshalJSON accepts arrays mixing numbers and numeric strings.
func (s *IDSet) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("id set: %w", err)
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		id, err := parseID(item)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	*s = NewIDSet(ids...)
	return nil
}

// MarshalJSON always renders an array, never null.
func (s IDSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]int64(s))
}

func parseID(item json.RawMessage) (int64, error) {
	var num json.Number
	if err := json.Unmarshal(item, &num); err == nil {
		return strconv.ParseInt(num.String(), 10, 64)
	}
	var str string
	if err := json.Unmarshal(item, &str); err != nil {
		return 0, fmt.Errorf("id set: invalid element %s", string(item))
	}
	id, err := strconv.ParseInt(strings.TrimSpace(str), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("id set: invalid element %q", str)
	}
	return id, nil
}
