package http

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ListResponse wraps a list of items (non-paginated)
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The header has already been sent, so an encode error cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteList writes a simple list response
func WriteList[T any](w http.ResponseWriter, data []T) {
	if data == nil {
		data = []T{}
	}
	WriteJSON(w, http.StatusOK, ListResponse[T]{
		Data:  data,
		Count: len(data),
	})
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func optionalUUID(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	value := id.String()
	return &value
}

// hours converts a duration to fractional hours rounded to two decimals.
func hours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}
