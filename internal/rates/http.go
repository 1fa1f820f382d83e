package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mmynk/ledgerwise/internal/currency"
	"github.com/mmynk/ledgerwise/internal/models"
	"github.com/mmynk/ledgerwise/internal/resilience"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("rates")

const serviceName = "exchange-rates"

// defaultFetchTimeout bounds a shared refresh once it is detached from callers.
const defaultFetchTimeout = 30 * time.Second

// latestResponse is the JSON document served by the rates endpoint.
type latestResponse struct {
	Base      string                     `json:"base"`
	Timestamp int64                      `json:"timestamp"`
	Rates     map[string]decimal.Decimal `json:"rates"`
}

// HTTPProvider fetches rates from an HTTP endpoint and caches them for a TTL.
// Concurrent refreshes are collapsed into a single request.
type HTTPProvider struct {
	httpClient *http.Client
	url        string
	ttl        time.Duration
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	now        func() time.Time

	// fetchTimeout bounds a refresh; it runs independently of any caller.
	fetchTimeout time.Duration

	group singleflight.Group

	mu        sync.RWMutex
	cached    Snapshot
	expiresAt time.Time
}

// NewHTTPProvider creates a new HTTPProvider.
func NewHTTPProvider(httpClient *http.Client, url string, ttl time.Duration, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *HTTPProvider {
	fetchTimeout := defaultFetchTimeout
	if perAttempt := httpClient.Timeout * time.Duration(cfg.MaxRetries+1); perAttempt > fetchTimeout {
		fetchTimeout = perAttempt
	}
	return &HTTPProvider{
		httpClient:   httpClient,
		url:          url,
		ttl:          ttl,
		cb:           cb,
		cfg:          cfg,
		now:          time.Now,
		fetchTimeout: fetchTimeout,
	}
}

// LatestRates returns the cached snapshot, refreshing it when expired.
// The returned snapshot is shared and must not be modified.
//
// A refresh is shared by all concurrent callers and is not cancelled when
// the caller that started it goes away; each caller still returns as soon
// as its own ctx is done.
func (p *HTTPProvider) LatestRates(ctx context.Context) (Snapshot, error) {
	if snap, ok := p.fromCache(); ok {
		return snap, nil
	}

	ch := p.group.DoChan("latest", func() (interface{}, error) {
		if snap, ok := p.fromCache(); ok {
			return snap, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.fetchTimeout)
		defer cancel()
		snap, err := p.fetch(fetchCtx)
		if err != nil {
			return Snapshot{}, err
		}
		p.mu.Lock()
		p.cached = snap
		p.expiresAt = p.now().Add(p.ttl)
		p.mu.Unlock()
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Snapshot{}, res.Err
		}
		return res.Val.(Snapshot), nil
	}
}

func (p *HTTPProvider) fromCache() (Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cached.Rates == nil || !p.now().Before(p.expiresAt) {
		return Snapshot{}, false
	}
	return p.cached, true
}

// fetch downloads a snapshot with retry, circuit breaker, and tracing.
func (p *HTTPProvider) fetch(ctx context.Context) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "HTTPProvider.LatestRates")
	defer span.End()
	span.SetAttributes(attribute.String("rates.url", p.url))

	var body latestResponse

	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, resilience.RetryWithBackoff(ctx, p.cfg, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
			if err != nil {
				return resilience.Permanent(err)
			}
			req.Header.Set("Accept", "application/json")

			resp, err := p.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return resilience.Permanent(fmt.Errorf("rates API returned status %d", resp.StatusCode))
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("rates API returned status %d", resp.StatusCode)
			}

			body = latestResponse{}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return resilience.Permanent(fmt.Errorf("failed to decode rates: %w", err))
			}
			return nil
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Snapshot{}, &ExternalError{Service: serviceName, Err: err}
	}

	if body.Base == "" {
		err := fmt.Errorf("rates response has no base currency")
		span.SetStatus(codes.Error, err.Error())
		return Snapshot{}, &ExternalError{Service: serviceName, Err: err}
	}

	snap := Snapshot{
		Base:      currency.Normalize(body.Base),
		Rates:     make(map[models.Currency]decimal.Decimal, len(body.Rates)),
		FetchedAt: p.now(),
	}
	if body.Timestamp > 0 {
		snap.FetchedAt = time.Unix(body.Timestamp, 0)
	}
	for code, rate := range body.Rates {
		snap.Rates[currency.Normalize(code)] = rate
	}
	span.SetAttributes(attribute.Int("rates.count", len(snap.Rates)))

	return snap, nil
}
