// poller.go implements a REST polling ingestion channel, adapted from the
// teacher's internal/exchange/client.go Client: a resty client with a
// base URL, timeout, and 5xx retry, wrapped with a TokenBucket rate
// limiter rather than the teacher's per-category RateLimiter (this feed
// has exactly one endpoint category to protect).
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"featuregraph/internal/config"
	"featuregraph/internal/store"
	"featuregraph/pkg/types"
)

const (
	pollerTimeout       = 10 * time.Second
	pollerRetryCount    = 3
	pollerRetryWait     = 500 * time.Millisecond
	pollerRetryMaxWait  = 5 * time.Second
	pollerBucketCap     = 10
	pollerBucketRefill  = 5 // tokens/sec
)

// snapshotResponse is the wire shape of the demo feed's /snapshot endpoint:
// every tick and trade observed since the poller's last request.
type snapshotResponse struct {
	Ticks  []TickMessage  `json:"ticks"`
	Trades []TradeMessage `json:"trades"`
}

// Poller periodically fetches a snapshot of market data over REST and
// ingests it into a Store. Used when a venue has no push feed, or as a
// fallback alongside WSFeed.
type Poller struct {
	http     *resty.Client
	rl       *TokenBucket
	store    *store.Store
	onEvent  func(types.Instrument, types.Timestamp)
	interval time.Duration
	logger   *slog.Logger
}

// NewPoller builds a Poller against cfg.RestBaseURL, polling every
// cfg.PollInterval (defaulting to one second if unset). onEvent, if
// non-nil, fires once per ingested tick/trade — see WSFeed's doc comment
// on the same hook.
func NewPoller(cfg config.FeedConfig, st *store.Store, onEvent func(types.Instrument, types.Timestamp), logger *slog.Logger) *Poller {
	httpClient := resty.New().
		SetBaseURL(cfg.RestBaseURL).
		SetTimeout(pollerTimeout).
		SetRetryCount(pollerRetryCount).
		SetRetryWaitTime(pollerRetryWait).
		SetRetryMaxWaitTime(pollerRetryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}

	return &Poller{
		http:     httpClient,
		rl:       NewTokenBucket(pollerBucketCap, pollerBucketRefill),
		store:    st,
		onEvent:  onEvent,
		interval: interval,
		logger:   logger.With("component", "rest_poller"),
	}
}

// Run polls on a fixed interval until ctx is cancelled. A single failed
// poll is logged and skipped — it never stops the loop, since the next
// tick will simply retry.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.pollOnce(ctx); err != nil {
				p.logger.Warn("poll failed", "error", err)
			}
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) error {
	if err := p.rl.Wait(ctx); err != nil {
		return err
	}

	var result snapshotResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/snapshot")
	if err != nil {
		return fmt.Errorf("get snapshot: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("get snapshot: status %d: %s", resp.StatusCode(), resp.String())
	}

	for _, t := range result.Ticks {
		tick := tickFromWire(t)
		p.store.IngestTick(tick)
		if p.onEvent != nil {
			p.onEvent(tick.Instrument, tick.EventTime)
		}
	}
	for _, t := range result.Trades {
		trade := tradeFromWire(t)
		if t.Aggregated {
			p.store.IngestAggTrade(trade)
		} else {
			p.store.IngestTrade(trade)
		}
		if p.onEvent != nil {
			p.onEvent(trade.Instrument, trade.EventTime)
		}
	}
	return nil
}
