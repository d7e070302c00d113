package gsa

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcape/expense-reporter/internal/entity"
)

const lodgingPayload = `{
	"rates": [{
		"rate": [{
			"zip": "20001",
			"meals": 64,
			"months": {"month": [
				{"long": "June", "value": 150},
				{"long": "July", "value": 155}
			]}
		}]
	}]
}`

const miePayload = `[
	{"total": 59, "breakfast": 13, "lunch": 15, "dinner": 26, "incidental": 5},
	{"total": 64, "breakfast": 14, "lunch": 16, "dinner": 29, "incidental": 5}
]`

func newTestServer(t *testing.T, lodgingStatus int, lodgingBody string) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		switch {
		case strings.Contains(r.URL.Path, "/rates/conus/mie/"):
			w.Write([]byte(miePayload))
		default:
			w.WriteHeader(lodgingStatus)
			w.Write([]byte(lodgingBody))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL, "test-key", 5*time.Second, nil)
}

func TestLookupByZip(t *testing.T) {
	_, c := newTestServer(t, http.StatusOK, lodgingPayload)

	snapshot, err := c.Lookup(context.Background(), "2024-06-10", entity.Location{Zip: "20001"})
	require.NoError(t, err)

	june, found := snapshot.LodgingFor("June")
	require.True(t, found)
	assert.True(t, june.Equal(decimal.NewFromInt(150)))
	july, found := snapshot.LodgingFor("July")
	require.True(t, found)
	assert.True(t, july.Equal(decimal.NewFromInt(155)))
	_, found = snapshot.LodgingFor("August")
	assert.False(t, found)

	assert.True(t, snapshot.MIE.Total.Equal(decimal.NewFromInt(64)))
	assert.True(t, snapshot.MIE.Dinner.Equal(decimal.NewFromInt(29)))
}

func TestLookupByCityState(t *testing.T) {
	var lodgingPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/rates/conus/mie/") {
			w.Write([]byte(miePayload))
			return
		}
		lodgingPath = r.URL.Path
		w.Write([]byte(lodgingPayload))
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "test-key", 5*time.Second, nil)

	_, err := c.Lookup(context.Background(), "2024-06-10", entity.Location{City: "Washington", State: "DC"})
	require.NoError(t, err)
	assert.Equal(t, "/rates/city/Washington/state/DC/year/2024", lodgingPath)
}

func TestLookupNotFound(t *testing.T) {
	t.Run("http 404", func(t *testing.T) {
		_, c := newTestServer(t, http.StatusNotFound, "")
		_, err := c.Lookup(context.Background(), "2024-06-10", entity.Location{Zip: "00000"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty rates array", func(t *testing.T) {
		_, c := newTestServer(t, http.StatusOK, `{"rates": []}`)
		_, err := c.Lookup(context.Background(), "2024-06-10", entity.Location{Zip: "00000"})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLookupNestedAPIError(t *testing.T) {
	_, c := newTestServer(t, http.StatusOK, `{"error": {"message": "rate limit exceeded"}}`)
	_, err := c.Lookup(context.Background(), "2024-06-10", entity.Location{Zip: "20001"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestLookupServerError(t *testing.T) {
	_, c := newTestServer(t, http.StatusInternalServerError, "boom")
	_, err := c.Lookup(context.Background(), "2024-06-10", entity.Location{Zip: "20001"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLookupInputValidation(t *testing.T) {
	_, c := newTestServer(t, http.StatusOK, lodgingPayload)

	_, err := c.Lookup(context.Background(), "June 2024", entity.Location{Zip: "20001"})
	assert.Error(t, err, "invalid start date")

	_, err = c.Lookup(context.Background(), "2024-06-10", entity.Location{City: "Washington"})
	assert.Error(t, err, "city without state")
}

func TestLookupNoMatchingMIE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/rates/conus/mie/") {
			w.Write([]byte(`[{"total": 59}]`))
			return
		}
		w.Write([]byte(lodgingPayload))
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "test-key", 5*time.Second, nil)

	_, err := c.Lookup(context.Background(), "2024-06-10", entity.Location{Zip: "20001"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "M&IE")
}
