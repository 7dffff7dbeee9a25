package validation

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
)

func TestIntQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    int
		wantErr bool
	}{
		{"absent uses default", "", 24, false},
		{"valid value", "?hours=48", 48, false},
		{"not a number", "?hours=abc", 24, true},
		{"below range", "?hours=0", 0, true},
		{"above range", "?hours=1000", 1000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			v := NewValidator()

			got := v.IntQuery(req, "hours", 24, 1, 168)
			assert.Equal(t, tt.want, got)

			err := v.Err()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verrs *apperrors.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Contains(t, verrs.Errors, "hours")
		})
	}
}

func TestIntQuery_RangeMessage(t *testing.T) {
	v := NewValidator()
	v.IntQuery(httptest.NewRequest(http.MethodGet, "/?days=0", nil), "days", 30, 1, 365)

	var verrs *apperrors.ValidationErrors
	require.True(t, errors.As(v.Err(), &verrs))
	assert.Equal(t, []string{"Must be between 1 and 365"}, verrs.Errors["days"])
}

func TestPositiveID(t *testing.T) {
	v := NewValidator()
	assert.Equal(t, int64(42), v.PositiveID("ticketID", "42"))
	assert.NoError(t, v.Err())

	assert.Equal(t, int64(0), v.PositiveID("ticketID", "-1"))
	assert.Equal(t, int64(0), v.PositiveID("ticketID", "x"))

	var verrs *apperrors.ValidationErrors
	require.True(t, errors.As(v.Err(), &verrs))
	assert.Len(t, verrs.Errors["ticketID"], 2)
}

func TestCheck(t *testing.T) {
	v := NewValidator()
	v.Check(true, "a", "ok")
	v.Check(false, "b", "bad")

	var verrs *apperrors.ValidationErrors
	require.True(t, errors.As(v.Err(), &verrs))
	assert.Equal(t, map[string][]string{"b": {"bad"}}, verrs.Errors)
}
