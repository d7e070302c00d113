// Package gsa is the client for the GSA per-diem rate API
// (api.gsa.gov/travel/perdiem/v2). It fetches the location lodging table and
// the CONUS M&IE table in parallel and combines them into a RateSnapshot.
package gsa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/blackcape/expense-reporter/internal/entity"
)

// ErrNotFound distinguishes "no rates for this location" from transport or
// server failures, so callers can show a precise message.
var ErrNotFound = errors.New("no per diem rates found for the specified location")

// Client talks to the GSA API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		logger:     logger,
	}
}

// lodgingResponse mirrors the GSA rates payload. Month values arrive as
// numbers; the "meals" figure is the key into the M&IE table.
type lodgingResponse struct {
	Rates []struct {
		Rate []struct {
			Zip    string  `json:"zip"`
			Meals  float64 `json:"meals"`
			Months struct {
				Month []struct {
					Long  string  `json:"long"`
					Value float64 `json:"value"`
				} `json:"month"`
			} `json:"months"`
		} `json:"rate"`
	} `json:"rates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// mieRate is one row of the CONUS meals-and-incidentals table.
type mieRate struct {
	Total      float64 `json:"total"`
	Breakfast  float64 `json:"breakfast"`
	Lunch      float64 `json:"lunch"`
	Dinner     float64 `json:"dinner"`
	Incidental float64 `json:"incidental"`
}

// Lookup fetches and combines the per-diem rates for the trip's location and
// the year of the given start date (YYYY-MM-DD).
func (c *Client) Lookup(ctx context.Context, date string, loc entity.Location) (*entity.RateSnapshot, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", date, err)
	}
	year := t.Year()

	var locationQuery string
	switch {
	case loc.Zip != "":
		locationQuery = fmt.Sprintf("zip/%s", url.PathEscape(loc.Zip))
	case loc.City != "" && loc.State != "":
		locationQuery = fmt.Sprintf("city/%s/state/%s", url.PathEscape(loc.City), url.PathEscape(loc.State))
	default:
		return nil, errors.New("a valid location (city/state or ZIP code) is required")
	}

	lodgingEndpoint := fmt.Sprintf("rates/%s/year/%d", locationQuery, year)
	mieEndpoint := fmt.Sprintf("rates/conus/mie/%d", year)

	var lodging lodgingResponse
	var mie []mieRate

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.getJSON(gctx, lodgingEndpoint, &lodging)
	})
	g.Go(func() error {
		return c.getJSON(gctx, mieEndpoint, &mie)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if lodging.Error != nil {
		return nil, fmt.Errorf("gsa api returned error: %s", lodging.Error.Message)
	}
	if len(lodging.Rates) == 0 || len(lodging.Rates[0].Rate) == 0 {
		return nil, ErrNotFound
	}
	locationData := lodging.Rates[0].Rate[0]

	snapshot := &entity.RateSnapshot{}
	for _, m := range locationData.Months.Month {
		snapshot.LodgingByMonth = append(snapshot.LodgingByMonth, entity.LodgingRate{
			Month: m.Long,
			Value: decimal.NewFromFloat(m.Value),
		})
	}

	breakdown, found := matchMIE(mie, locationData.Meals)
	if !found {
		return nil, fmt.Errorf("could not find M&IE breakdown for rate %.2f", locationData.Meals)
	}
	snapshot.MIE = breakdown

	c.logger.Info("gsa rates fetched",
		"year", year,
		"months", len(snapshot.LodgingByMonth),
		"mie_total", snapshot.MIE.Total,
	)
	return snapshot, nil
}

// matchMIE finds the M&IE breakdown whose total equals the location's meals
// rate from the lodging response.
func matchMIE(rates []mieRate, total float64) (entity.MIEBreakdown, bool) {
	for _, r := range rates {
		if r.Total == total {
			return entity.MIEBreakdown{
				Total:      decimal.NewFromFloat(r.Total),
				Breakfast:  decimal.NewFromFloat(r.Breakfast),
				Lunch:      decimal.NewFromFloat(r.Lunch),
				Dinner:     decimal.NewFromFloat(r.Dinner),
				Incidental: decimal.NewFromFloat(r.Incidental),
			}, true
		}
	}
	return entity.MIEBreakdown{}, false
}

func (c *Client) getJSON(ctx context.Context, endpoint string, target any) error {
	fullURL := fmt.Sprintf("%s/%s", c.baseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", endpoint, err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed for %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response for %s: %w", endpoint, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("gsa api error", "endpoint", endpoint, "status", resp.StatusCode)
		return fmt.Errorf("gsa api error for %s (%d): %s", endpoint, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("parse response for %s: %w", endpoint, err)
	}
	return nil
}
