package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// ParseJSON decodes JSON from the request body into the destination.
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// QueryInt64 parses an integer query parameter. A missing parameter
// returns (0, false, nil); a malformed one returns an error.
func QueryInt64(r *http.Request, key string) (int64, bool, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return 0, false, nil
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid integer for %s: %q", key, str)
	}
	return val, true, nil
}
