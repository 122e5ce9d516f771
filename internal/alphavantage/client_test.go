package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stockingest/internal/ratelimit"
)

const intradayBody = `{
	"Meta Data": {
		"1. Information": "Intraday (60min) open, high, low, close prices and volume",
		"2. Symbol": "AAPL",
		"4. Interval": "60min"
	},
	"Time Series (60min)": {
		"2024-01-15 10:00:00": {
			"1. open": "175.50",
			"2. high": "178.75",
			"3. low": "174.25",
			"4. close": "178.23",
			"5. volume": "50000000"
		},
		"2024-01-15 11:00:00": {
			"1. open": "178.23",
			"2. high": "179.10",
			"3. low": "177.80",
			"4. close": "178.90",
			"5. volume": "42000000"
		},
		"2024-01-15 12:00:00": {
			"1. open": "178.90",
			"2. high": "180.00",
			"3. low": "178.50",
			"4. close": "179.75",
			"5. volume": "38000000"
		}
	}
}`

func newTestClient(baseURL, interval string) *Client {
	return NewClient("test_key", interval, baseURL, 5*time.Second, ratelimit.Unlimited())
}

func TestClient_Fetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "TIME_SERIES_INTRADAY" {
			t.Errorf("function = %q, want TIME_SERIES_INTRADAY", got)
		}
		if got := r.URL.Query().Get("interval"); got != "60min" {
			t.Errorf("interval = %q, want 60min", got)
		}
		if got := r.URL.Query().Get("outputsize"); got != "compact" {
			t.Errorf("outputsize = %q, want compact", got)
		}
		if got := r.URL.Query().Get("apikey"); got != "test_key" {
			t.Errorf("apikey = %q, want test_key", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(intradayBody))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "60min")
	points, err := client.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Fetch() returned unexpected error: %v", err)
	}

	if len(points) != 3 {
		t.Fatalf("Fetch() returned %d points, want 3", len(points))
	}
	for _, p := range points {
		if p.Symbol != "AAPL" {
			t.Errorf("point symbol = %q, want AAPL", p.Symbol)
		}
		if p.Timestamp.IsZero() {
			t.Error("point has zero timestamp")
		}
		if p.High < p.Low {
			t.Errorf("point has high %v < low %v", p.High, p.Low)
		}
		if p.Volume <= 0 {
			t.Errorf("point volume = %d, want > 0", p.Volume)
		}
	}
}

func TestClient_Fetch_Daily(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "TIME_SERIES_DAILY" {
			t.Errorf("function = %q, want TIME_SERIES_DAILY", got)
		}
		if got := r.URL.Query().Get("interval"); got != "" {
			t.Errorf("interval = %q, want unset for daily", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"Time Series (Daily)": {
				"2024-01-15": {
					"1. open": "175.50",
					"2. high": "178.75",
					"3. low": "174.25",
					"4. close": "178.23",
					"5. volume": "50000000"
				}
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, IntervalDaily)
	points, err := client.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Fetch() returned unexpected error: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("Fetch() returned %d points, want 1", len(points))
	}
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !points[0].Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", points[0].Timestamp, want)
	}
}

func TestClient_Fetch_EmptySeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Time Series (60min)": {}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "60min")
	points, err := client.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Fetch() returned unexpected error for empty series: %v", err)
	}
	if len(points) != 0 {
		t.Errorf("Fetch() returned %d points, want 0", len(points))
	}
}

func TestClient_Fetch_ErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind ErrorKind
	}{
		{
			name:     "note body means rate limited",
			status:   http.StatusOK,
			body:     `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`,
			wantKind: KindRateLimited,
		},
		{
			name:     "information body means rate limited",
			status:   http.StatusOK,
			body:     `{"Information": "API rate limit reached"}`,
			wantKind: KindRateLimited,
		},
		{
			name:     "error message body means bad key",
			status:   http.StatusOK,
			body:     `{"Error Message": "the parameter apikey is invalid or missing"}`,
			wantKind: KindUnauthorized,
		},
		{
			name:     "http 429",
			status:   http.StatusTooManyRequests,
			body:     `{}`,
			wantKind: KindRateLimited,
		},
		{
			name:     "http 401",
			status:   http.StatusUnauthorized,
			body:     `{}`,
			wantKind: KindUnauthorized,
		},
		{
			name:     "http 500",
			status:   http.StatusInternalServerError,
			body:     `{}`,
			wantKind: KindUnreachable,
		},
		{
			name:     "missing series key",
			status:   http.StatusOK,
			body:     `{"Meta Data": {"2. Symbol": "AAPL"}}`,
			wantKind: KindMalformedResponse,
		},
		{
			name:     "series is not a mapping",
			status:   http.StatusOK,
			body:     `{"Time Series (60min)": [1, 2, 3]}`,
			wantKind: KindMalformedResponse,
		},
		{
			name:     "unparseable price",
			status:   http.StatusOK,
			body:     `{"Time Series (60min)": {"2024-01-15 10:00:00": {"1. open": "not_a_number", "2. high": "1", "3. low": "1", "4. close": "1", "5. volume": "1"}}}`,
			wantKind: KindMalformedResponse,
		},
		{
			name:     "body is not json",
			status:   http.StatusOK,
			body:     `<html>maintenance</html>`,
			wantKind: KindMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL, "60min")
			_, err := client.Fetch(context.Background(), "AAPL")
			if err == nil {
				t.Fatal("Fetch() expected error, got nil")
			}

			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("Fetch() error %T is not *FetchError", err)
			}
			if fe.Kind != tt.wantKind {
				t.Errorf("error kind = %q, want %q", fe.Kind, tt.wantKind)
			}
		})
	}
}

func TestClient_Fetch_Timeout(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	// Unblock the handler before Close waits on outstanding requests.
	defer server.Close()
	defer close(block)

	client := NewClient("test_key", "60min", server.URL, 1*time.Second, ratelimit.Unlimited())

	start := time.Now()
	_, err := client.Fetch(context.Background(), "AAPL")
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Fetch() expected timeout error, got nil")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Fetch() error %T is not *FetchError", err)
	}
	if fe.Kind != KindUnreachable {
		t.Errorf("error kind = %q, want %q", fe.Kind, KindUnreachable)
	}
	if elapsed > 3*time.Second {
		t.Errorf("Fetch() took %v, want bounded by the 1s timeout", elapsed)
	}
}

func TestClient_Fetch_NetworkError(t *testing.T) {
	// Point at a server that is already closed.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server.URL, "60min")
	_, err := client.Fetch(context.Background(), "AAPL")
	if err == nil {
		t.Fatal("Fetch() expected error, got nil")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Fetch() error %T is not *FetchError", err)
	}
	if fe.Kind != KindUnreachable {
		t.Errorf("error kind = %q, want %q", fe.Kind, KindUnreachable)
	}
}

func TestClient_Fetch_InvalidSymbol(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
	}{
		{"empty", ""},
		{"lowercase", "aapl"},
		{"too long", "ABCDEFGHIJK"},
		{"punctuation", "AA;PL"},
	}

	client := newTestClient("http://localhost:0", "60min")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := client.Fetch(context.Background(), tt.symbol); err == nil {
				t.Errorf("Fetch(%q) expected error, got nil", tt.symbol)
			}
		})
	}
}

func TestClient_Fetch_EmptyAPIKey(t *testing.T) {
	client := NewClient("", "60min", "http://localhost:0", time.Second, nil)
	_, err := client.Fetch(context.Background(), "AAPL")
	if err == nil {
		t.Fatal("Fetch() expected error for empty API key, got nil")
	}
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindUnauthorized {
		t.Errorf("error = %v, want unauthorized FetchError", err)
	}
}
