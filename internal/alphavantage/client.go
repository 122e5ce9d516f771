// Package alphavantage implements the quote source client for the
// Alpha Vantage time-series API.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"resty.dev/v3"

	"stockingest/internal/quote"
	"stockingest/internal/ratelimit"
)

// IntervalDaily selects the daily time series instead of an intraday one.
// Intraday intervals are passed through verbatim (e.g. "60min", "5min").
const IntervalDaily = "daily"

const defaultTimeout = 15 * time.Second

// seriesEntry is one timestamped entry in the Alpha Vantage time-series
// mapping. All fields arrive as strings.
type seriesEntry struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// Client fetches OHLCV time series from Alpha Vantage.
// It performs exactly one outbound request per Fetch call and never retries;
// retry policy belongs to the external scheduler that re-invokes the run.
type Client struct {
	apiKey   string
	interval string
	client   *resty.Client
	limiter  *ratelimit.Limiter
}

// NewClient creates a quote source client. limiter may be nil to disable
// client-side rate budgeting (useful in tests). A non-positive timeout falls
// back to the default request ceiling.
func NewClient(apiKey, interval, baseURL string, timeout time.Duration, limiter *ratelimit.Limiter) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	return &Client{
		apiKey:   apiKey,
		interval: interval,
		client:   client,
		limiter:  limiter,
	}
}

// Fetch retrieves the time series for one symbol. On failure it returns a
// *FetchError whose kind tells the caller whether the API rate-limited us,
// was unreachable, rejected the key, or answered with an unexpected shape.
func (c *Client) Fetch(ctx context.Context, symbol string) ([]quote.Point, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return nil, NewUnauthorizedError(0, "API key is empty")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, NewUnreachableError(err)
		}
	}

	params := map[string]string{
		"symbol": symbol,
		"apikey": c.apiKey,
	}
	if c.interval == IntervalDaily {
		params["function"] = "TIME_SERIES_DAILY"
		params["outputsize"] = "compact"
	} else {
		params["function"] = "TIME_SERIES_INTRADAY"
		params["interval"] = c.interval
		params["outputsize"] = "compact"
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("")
	if err != nil {
		return nil, NewUnreachableError(err)
	}
	if !resp.IsSuccess() {
		return nil, ClassifyHTTPStatus(resp.StatusCode())
	}

	return c.parseSeries(symbol, resp.Bytes())
}

// parseSeries maps the raw response body to quote points. Alpha Vantage
// signals rate limiting with a "Note"/"Information" body and a bad key with
// an "Error Message" body, both under HTTP 200.
func (c *Client) parseSeries(symbol string, body []byte) ([]quote.Point, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, NewMalformedResponseError("response is not a JSON object", err)
	}

	if raw, ok := fields["Error Message"]; ok {
		return nil, NewUnauthorizedError(0, rawString(raw))
	}
	if raw, ok := fields["Note"]; ok {
		return nil, NewRateLimitError(0, rawString(raw))
	}
	if raw, ok := fields["Information"]; ok {
		return nil, NewRateLimitError(0, rawString(raw))
	}

	raw, ok := fields[c.seriesKey()]
	if !ok {
		return nil, NewMalformedResponseError(
			fmt.Sprintf("response has no %q field", c.seriesKey()), nil)
	}

	var series map[string]seriesEntry
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, NewMalformedResponseError("time series is not a timestamp mapping", err)
	}

	points := make([]quote.Point, 0, len(series))
	for stamp, entry := range series {
		p, err := entry.toPoint(symbol, stamp)
		if err != nil {
			return nil, NewMalformedResponseError(err.Error(), err)
		}
		points = append(points, p)
	}
	return points, nil
}

// seriesKey returns the response field holding the time-series mapping,
// which embeds the requested interval.
func (c *Client) seriesKey() string {
	if c.interval == IntervalDaily {
		return "Time Series (Daily)"
	}
	return fmt.Sprintf("Time Series (%s)", c.interval)
}

func (e seriesEntry) toPoint(symbol, stamp string) (quote.Point, error) {
	ts, err := time.Parse("2006-01-02 15:04:05", stamp)
	if err != nil {
		// Daily series stamps carry no time component.
		ts, err = time.Parse("2006-01-02", stamp)
		if err != nil {
			return quote.Point{}, fmt.Errorf("parse timestamp %q: %w", stamp, err)
		}
	}
	open, err := strconv.ParseFloat(e.Open, 64)
	if err != nil {
		return quote.Point{}, fmt.Errorf("parse open %q: %w", e.Open, err)
	}
	high, err := strconv.ParseFloat(e.High, 64)
	if err != nil {
		return quote.Point{}, fmt.Errorf("parse high %q: %w", e.High, err)
	}
	low, err := strconv.ParseFloat(e.Low, 64)
	if err != nil {
		return quote.Point{}, fmt.Errorf("parse low %q: %w", e.Low, err)
	}
	closePrice, err := strconv.ParseFloat(e.Close, 64)
	if err != nil {
		return quote.Point{}, fmt.Errorf("parse close %q: %w", e.Close, err)
	}
	volume, err := strconv.ParseInt(e.Volume, 10, 64)
	if err != nil {
		return quote.Point{}, fmt.Errorf("parse volume %q: %w", e.Volume, err)
	}
	return quote.Point{
		Symbol:    symbol,
		Timestamp: ts,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}

func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol is empty")
	}
	if len(symbol) > 10 {
		return fmt.Errorf("symbol %q exceeds 10 characters", symbol)
	}
	for _, r := range symbol {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return fmt.Errorf("symbol %q is not uppercase alphanumeric", symbol)
		}
	}
	return nil
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw)
	}
	return s
}
