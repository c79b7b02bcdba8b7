package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/chainstash/internal/client/models"
	"github.com/dmitrijs2005/chainstash/internal/common"
	"github.com/dmitrijs2005/chainstash/internal/logging"
)

// FallbackEndpoint names the synthesized outcome in publications.
const FallbackEndpoint = "fallback"

// Config selects and tunes the strategies of a Publisher.
type Config struct {
	GatewayURL     string
	Fallbacks      []string
	Token          string
	AttemptTimeout time.Duration
	AllowDegraded  bool
	S3             *S3Config
}

// Publisher tries strategies in order and returns the first valid content id.
type Publisher struct {
	strategies     []Strategy
	attemptTimeout time.Duration
	allowDegraded  bool
	now            func() time.Time
	log            logging.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithAttemptTimeout bounds each strategy attempt. Zero means no bound.
func WithAttemptTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) { p.attemptTimeout = d }
}

// WithDegraded enables or disables the placeholder id fallback.
func WithDegraded(allow bool) PublisherOption {
	return func(p *Publisher) { p.allowDegraded = allow }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) { p.now = now }
}

// NewPublisher creates a Publisher over strategies. Degraded publishing is
// on unless disabled with WithDegraded.
func NewPublisher(strategies []Strategy, log logging.Logger, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		strategies:    strategies,
		allowDegraded: true,
		now:           time.Now,
		log:           log.With("component", "gateway"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// New builds the default strategy chain from cfg: the configured gateway,
// the fallback gateways, then the S3 bucket if set. It fails with
// common.ErrMissingConfiguration without a gateway URL.
func New(ctx context.Context, cfg Config, log logging.Logger) (*Publisher, error) {
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("%w: gateway url", common.ErrMissingConfiguration)
	}

	client := &http.Client{}
	seen := make(map[string]bool)
	var strategies []Strategy

	for _, u := range append([]string{cfg.GatewayURL}, cfg.Fallbacks...) {
		k := NewKuboStrategy(u, cfg.Token, client)
		if u == "" || seen[k.Name()] {
			continue
		}
		seen[k.Name()] = true
		strategies = append(strategies, k)
	}

	if cfg.S3 != nil {
		s, err := NewS3Strategy(ctx, *cfg.S3)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, s)
	}

	return NewPublisher(strategies, log,
		WithAttemptTimeout(cfg.AttemptTimeout),
		WithDegraded(cfg.AllowDegraded),
	), nil
}

// Endpoints lists strategy names in attempt order.
func (p *Publisher) Endpoints() []string {
	names := make([]string, 0, len(p.strategies))
	for _, s := range p.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Publish uploads src. If every strategy fails and degraded publishing is
// allowed, the result carries a FallbackID and Degraded is set; otherwise
// common.ErrPublishFailed is returned. Cancelling ctx stops the walk.
func (p *Publisher) Publish(ctx context.Context, src models.FileSource) (models.Publication, error) {
	var errs []error

	for _, s := range p.strategies {
		p.log.Debug(ctx, "publishing", "endpoint", s.Name(), "file", src.Name)

		id, err := p.attempt(ctx, s, src)
		if err == nil {
			p.log.Info(ctx, "published", "endpoint", s.Name(), "cid", id)
			return models.Publication{ContentID: id, Endpoint: s.Name()}, nil
		}

		p.log.Warn(ctx, "publish attempt failed", "endpoint", s.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))

		if ctx.Err() != nil {
			return models.Publication{}, fmt.Errorf("%w: %w", common.ErrPublishFailed, ctx.Err())
		}
	}

	if !p.allowDegraded {
		return models.Publication{}, fmt.Errorf("%w: %w", common.ErrPublishFailed, errors.Join(errs...))
	}

	id := FallbackID(src.Name, src.Size, p.now())
	p.log.Warn(ctx, "all gateways failed, using placeholder content id", "cid", id, "attempts", len(errs))
	return models.Publication{ContentID: id, Endpoint: FallbackEndpoint, Degraded: true}, nil
}

func (p *Publisher) attempt(ctx context.Context, s Strategy, src models.FileSource) (string, error) {
	if p.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.attemptTimeout)
		defer cancel()
	}

	id, err := s.Publish(ctx, src)
	if err != nil {
		return "", err
	}
	if err := ValidateCID(id); err != nil {
		return "", err
	}
	return id, nil
}

// FallbackID derives the placeholder id for a file that could not be
// published: "Qm" followed by at most 44 characters of the base64 encoding
// of name, size and the Unix millisecond timestamp. It is not a content
// address.
func FallbackID(name string, size int64, at time.Time) string {
	raw := name + strconv.FormatInt(size, 10) + strconv.FormatInt(at.UnixMilli(), 10)
	enc := base64.StdEncoding.EncodeToString([]byte(raw))
	if len(enc) > 44 {
		enc = enc[:44]
	}
	return "Qm" + enc
}
