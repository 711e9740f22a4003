package oracle

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/mdaamer248/Athelete/internal/adapter"
)

// QuoteSource returns the latest price for a trading pair
//
//go:generate mockgen -source=quote.go -destination=../mocks/quote.go -package=mocks -mock_names=QuoteSource=MockQuoteSource
type QuoteSource interface {
	PairPrice(ctx context.Context, pair string) (decimal.Decimal, error)
}

// pairQuoteResponse is the wire shape of the quote endpoint.
// Price comes back as a string to avoid float rounding on the wire.
type pairQuoteResponse struct {
	Pair  string `json:"pair"`
	Price string `json:"price"`
}

type httpQuoteSource struct {
	baseURL string
	client  adapter.HTTPClient
}

// NewHTTPQuoteSource creates a quote source backed by an HTTP endpoint.
// The endpoint is queried as GET {baseURL}?pair={pair} and retried with
// exponential backoff by the underlying client.
func NewHTTPQuoteSource(baseURL string, client adapter.HTTPClient) QuoteSource {
	return &httpQuoteSource{
		baseURL: baseURL,
		client:  client,
	}
}

func (q *httpQuoteSource) PairPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	var resp pairQuoteResponse
	endpoint := fmt.Sprintf("%s?pair=%s", q.baseURL, url.QueryEscape(pair))
	if err := q.client.Get(ctx, endpoint, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch quote for %s: %w", pair, err)
	}

	price, err := decimal.NewFromString(resp.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse quote price %q for %s: %w", resp.Price, pair, err)
	}
	return price, nil
}
