package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tickerbot/internal/metrics"
)

var ErrTickerNotFound = errors.New("ticker not found")

// Aggregate is the provider's previous-close result for one ticker.
// Prices are provider-native dollars; convert with CentsFromDollars.
type Aggregate struct {
	Ticker string  `json:"ticker"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
	Ts     int64   `json:"ts"` // unix ms of the bar
}

type TickerDetails struct {
	Ticker      string `json:"ticker"`
	Name        string `json:"name"`
	HomepageURL string `json:"homepageUrl"`
	LogoURL     string `json:"logoUrl"`
}

// Client wraps the Polygon-style market-data REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type prevCloseResponse struct {
	Ticker       string `json:"ticker"`
	ResultsCount int    `json:"resultsCount"`
	Results      []struct {
		Open   float64 `json:"o"`
		High   float64 `json:"h"`
		Low    float64 `json:"l"`
		Close  float64 `json:"c"`
		Volume float64 `json:"v"`
		Ts     int64   `json:"t"`
	} `json:"results"`
}

// PreviousClose fetches the last completed session's aggregate for ticker.
func (c *Client) PreviousClose(ctx context.Context, ticker string) (Aggregate, error) {
	path := fmt.Sprintf("/v2/aggs/ticker/%s/prev?adjusted=true", url.PathEscape(ticker))
	var out prevCloseResponse
	if err := c.getJSON(ctx, path, &out); err != nil {
		return Aggregate{}, err
	}
	if out.ResultsCount == 0 || len(out.Results) == 0 {
		return Aggregate{}, fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
	}
	r := out.Results[0]
	return Aggregate{
		Ticker: ticker,
		Open:   r.Open,
		High:   r.High,
		Low:    r.Low,
		Close:  r.Close,
		Volume: r.Volume,
		Ts:     r.Ts,
	}, nil
}

type tickerDetailsResponse struct {
	Results struct {
		Ticker      string `json:"ticker"`
		Name        string `json:"name"`
		HomepageURL string `json:"homepage_url"`
		Branding    struct {
			LogoURL string `json:"logo_url"`
		} `json:"branding"`
	} `json:"results"`
}

// TickerDetails fetches instrument metadata for ticker.
func (c *Client) TickerDetails(ctx context.Context, ticker string) (TickerDetails, error) {
	path := "/v3/reference/tickers/" + url.PathEscape(ticker)
	var out tickerDetailsResponse
	if err := c.getJSON(ctx, path, &out); err != nil {
		return TickerDetails{}, err
	}
	return TickerDetails{
		Ticker:      out.Results.Ticker,
		Name:        out.Results.Name,
		HomepageURL: out.Results.HomepageURL,
		LogoURL:     out.Results.Branding.LogoURL,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ProviderErrors.Inc()
		return fmt.Errorf("market data request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrTickerNotFound
	}
	if resp.StatusCode >= 300 {
		metrics.ProviderErrors.Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("market data status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode market data response: %w", err)
	}
	return nil
}

func CentsFromDollars(v float64) int64 {
	return int64(math.Round(v * 100))
}
