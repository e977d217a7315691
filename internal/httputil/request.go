package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// maxBodyBytes bounds request bodies; state patches and narration stay well
// under it.
const maxBodyBytes = 10 << 20

// ParseJSON decodes the request body into dest. Unknown fields are allowed:
// state patches and aux docs are open-ended by design, and DTO validation
// happens downstream.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
