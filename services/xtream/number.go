package xtream

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// flexNumber tolerates the provider's loose typing: the same field may arrive
// as a JSON number, a quoted number, null, or an empty string depending on
// the panel version.
type flexNumber string

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = flexNumber(s)
		return nil
	}
	*n = flexNumber(data)
	return nil
}

func (n flexNumber) String() string { return string(n) }

// Int returns the value as an int, or 0 when absent or malformed.
func (n flexNumber) Int() int {
	v, err := strconv.Atoi(string(n))
	if err != nil {
		return 0
	}
	return v
}

// Int64 returns the value as an int64, or 0 when absent or malformed.
func (n flexNumber) Int64() int64 {
	v, err := strconv.ParseInt(string(n), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// Float returns the value as a float64, or 0 when absent or malformed.
func (n flexNumber) Float() float64 {
	v, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0
	}
	return v
}
