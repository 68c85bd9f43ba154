package tradier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"opencalc/internal/adapters/config"
	"opencalc/internal/adapters/marketdata"
	"opencalc/internal/domain/strike"
	"opencalc/internal/metrics"
	"opencalc/pkg/errors"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	dateFormat         = "2006-01-02"
)

// Client is the Tradier market-data adapter.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Compile-time check
var _ marketdata.Provider = (*Client)(nil)

// NewClient creates a new Tradier adapter from configuration. Credentials
// are held by the client; nothing downstream reads the environment.
func NewClient(cfg config.TradierConfig) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "tradier token required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	burst := rpm / 10
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
	}, nil
}

func (c *Client) Name() string {
	return "tradier"
}

// GetQuote returns the real-time underlying quote for one symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	params := url.Values{"symbols": []string{symbol}}

	data, err := c.get(ctx, "/markets/quotes", params)
	if err != nil {
		return nil, err
	}

	var res struct {
		Quotes struct {
			Quote *struct {
				Symbol      *string          `json:"symbol"`
				Description *string          `json:"description"`
				Last        *decimal.Decimal `json:"last"`
				Volume      *int64           `json:"volume"`
				Type        *string          `json:"type"`
			} `json:"quote"`
		} `json:"quotes"`
	}

	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedQuote, "quote for %s: %v", symbol, err)
	}

	q := res.Quotes.Quote
	if q == nil || q.Symbol == nil || q.Last == nil || q.Volume == nil || q.Type == nil {
		return nil, errors.Wrapf(errors.ErrMalformedQuote, "quote for %s: missing fields", symbol)
	}

	quote := &marketdata.Quote{
		Symbol: *q.Symbol,
		Last:   *q.Last,
		Volume: *q.Volume,
		Type:   *q.Type,
	}
	if q.Description != nil {
		quote.Description = *q.Description
	}

	return quote, nil
}

// GetExpirations lists the available option expiration dates for a symbol.
func (c *Client) GetExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	params := url.Values{"symbol": []string{symbol}}

	data, err := c.get(ctx, "/markets/options/expirations", params)
	if err != nil {
		return nil, err
	}

	var res struct {
		Expirations *struct {
			Date dateList `json:"date"`
		} `json:"expirations"`
	}

	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedQuote, "expirations for %s: %v", symbol, err)
	}
	if res.Expirations == nil {
		return nil, errors.Wrapf(errors.ErrMalformedQuote, "expirations for %s: missing", symbol)
	}

	dates := make([]time.Time, 0, len(res.Expirations.Date))
	for _, raw := range res.Expirations.Date {
		d, err := time.Parse(dateFormat, raw)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrMalformedQuote, "expiration date %q for %s", raw, symbol)
		}
		dates = append(dates, d)
	}

	return dates, nil
}

// GetChain returns the full option chain for a symbol and expiration.
// A contract without a strike or option type is a malformed response;
// missing bid/ask sides decode to zero and fall to the liquidity filter.
func (c *Client) GetChain(ctx context.Context, symbol string, expiration time.Time) ([]strike.ContractQuote, error) {
	params := url.Values{
		"symbol":     []string{symbol},
		"expiration": []string{expiration.Format(dateFormat)},
	}

	data, err := c.get(ctx, "/markets/options/chains", params)
	if err != nil {
		return nil, err
	}

	var res struct {
		Options *struct {
			Option []struct {
				Strike        *decimal.Decimal `json:"strike"`
				Bid           *decimal.Decimal `json:"bid"`
				Ask           *decimal.Decimal `json:"ask"`
				BidSize       *int64           `json:"bidsize"`
				AskSize       *int64           `json:"asksize"`
				OpenInterest  *int64           `json:"open_interest"`
				Volume        *int64           `json:"volume"`
				AverageVolume *int64           `json:"average_volume"`
				OptionType    *string          `json:"option_type"`
			} `json:"option"`
		} `json:"options"`
	}

	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedQuote, "chain for %s %s: %v", symbol, expiration.Format(dateFormat), err)
	}
	if res.Options == nil {
		return nil, errors.Wrapf(errors.ErrMalformedQuote, "chain for %s %s: missing", symbol, expiration.Format(dateFormat))
	}

	chain := make([]strike.ContractQuote, 0, len(res.Options.Option))
	for _, o := range res.Options.Option {
		if o.Strike == nil || o.OptionType == nil {
			return nil, errors.Wrapf(errors.ErrMalformedQuote, "chain for %s %s: contract missing strike or type", symbol, expiration.Format(dateFormat))
		}

		optType := strike.OptionType(*o.OptionType)
		if !optType.Valid() {
			return nil, errors.Wrapf(errors.ErrMalformedQuote, "chain for %s %s: option type %q", symbol, expiration.Format(dateFormat), *o.OptionType)
		}

		q := strike.ContractQuote{
			OptionType: optType,
			Strike:     *o.Strike,
		}
		if o.Bid != nil {
			q.Bid = *o.Bid
		}
		if o.Ask != nil {
			q.Ask = *o.Ask
		}
		if o.BidSize != nil {
			q.BidSize = *o.BidSize
		}
		if o.AskSize != nil {
			q.AskSize = *o.AskSize
		}
		if o.OpenInterest != nil {
			q.OpenInterest = *o.OpenInterest
		}
		if o.Volume != nil {
			q.Volume = *o.Volume
		}
		if o.AverageVolume != nil {
			q.AverageVolume = *o.AverageVolume
		}

		chain = append(chain, q)
	}

	return chain, nil
}

// get performs one rate-limited GET against the Tradier API.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrapf(err, "rate limiter for %s", endpoint)
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordProviderCall(c.Name(), endpoint, time.Since(start), err)
		return nil, errors.Wrapf(errors.ErrProviderUnavailable, "%s: %v", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		metrics.RecordProviderCall(c.Name(), endpoint, time.Since(start), errors.ErrRateLimited)
		return nil, errors.Wrapf(errors.ErrRateLimited, "%s", endpoint)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.RecordProviderCall(c.Name(), endpoint, time.Since(start), errors.ErrProviderUnavailable)
		return nil, errors.Wrapf(errors.ErrProviderUnavailable, "%s: status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	metrics.RecordProviderCall(c.Name(), endpoint, time.Since(start), err)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrProviderUnavailable, "%s: read body: %v", endpoint, err)
	}

	return body, nil
}

// dateList tolerates Tradier collapsing a single-element date array into a
// bare string.
type dateList []string

func (d *dateList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*d = many
		return nil
	}

	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*d = []string{one}
	return nil
}
