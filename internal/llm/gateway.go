package llm

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/mailcouncil/internal/metrics"
)

// Default per-attempt timeouts. Local models run on modest hardware and get
// the longer budget.
const (
	DefaultRemoteTimeout = 60 * time.Second
	DefaultLocalTimeout  = 180 * time.Second
)

// Generator is the engine-facing contract: produce text for one prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options configures gateway construction from application config.
type Options struct {
	RemoteAPIKey      string
	RemoteModel       string
	RemoteBaseURL     string
	RemoteTimeout     time.Duration
	LocalBaseURL      string
	LocalModel        string
	LocalTimeout      time.Duration
	Temperature       float64
	RequestsPerSecond float64
	Burst             int
}

// Gateway routes generation calls to the remote backend when one is
// credentialed, falling back to the local backend at most once per call.
// There are no retry loops: a failed call either falls back or surfaces.
type Gateway struct {
	remote        Completer // nil when no usable credential was configured
	local         Completer
	remoteTimeout time.Duration
	localTimeout  time.Duration
	limiter       *rate.Limiter
}

// NewGateway wires the two backends. The local provider ships with the
// deployment and is always constructed; the remote one only when the
// configured key is real rather than a sample placeholder.
func NewGateway(opts Options) (*Gateway, error) {
	local, err := NewLocalCompleter(opts.LocalBaseURL, opts.LocalModel, opts.Temperature)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		local:         local,
		remoteTimeout: opts.RemoteTimeout,
		localTimeout:  opts.LocalTimeout,
	}
	if g.remoteTimeout <= 0 {
		g.remoteTimeout = DefaultRemoteTimeout
	}
	if g.localTimeout <= 0 {
		g.localTimeout = DefaultLocalTimeout
	}

	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	if IsPlaceholderKey(opts.RemoteAPIKey) {
		log.Info().Msg("Remote provider credential absent or placeholder; running local-only")
		return g, nil
	}

	remote, err := NewRemoteCompleter(opts.RemoteAPIKey, opts.RemoteModel, opts.RemoteBaseURL, opts.Temperature)
	if err != nil {
		return nil, err
	}
	g.remote = remote
	return g, nil
}

// RemoteEnabled reports whether a usable remote credential was configured.
func (g *Gateway) RemoteEnabled() bool {
	return g.remote != nil
}

// attempt is one step of a call's resolution plan.
type attempt struct {
	provider Completer
	timeout  time.Duration
}

// plan resolves the backends to try for one call, in order. It runs per
// call, never cached, so a remote outage never latches the gateway onto the
// local backend for subsequent calls.
func (g *Gateway) plan() []attempt {
	if g.remote == nil {
		return []attempt{{g.local, g.localTimeout}}
	}
	return []attempt{
		{g.remote, g.remoteTimeout},
		{g.local, g.localTimeout},
	}
}

// Generate walks the resolution plan for this call: remote first when
// enabled, then exactly one fallback to local. The error from the last
// attempt is returned when everything fails.
func (g *Gateway) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr *ProviderError
	for i, att := range g.plan() {
		if i > 0 {
			metrics.ProviderFallbacks.Inc()
			log.Warn().
				Str("failed_provider", lastErr.Provider).
				Str("kind", string(lastErr.Kind)).
				Err(lastErr.Err).
				Msg("Provider failed; falling back to local backend for this call")
		}

		out, perr := g.call(ctx, att, prompt)
		if perr == nil {
			return out, nil
		}
		lastErr = perr
	}
	return "", lastErr
}

func (g *Gateway) call(ctx context.Context, att attempt, prompt string) (string, *ProviderError) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", newProviderError(att.provider.Name(), err)
		}
	}

	callCtx := ctx
	if att.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, att.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := att.provider.Complete(callCtx, prompt)
	metrics.ProviderRequestDuration.WithLabelValues(att.provider.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ProviderRequests.WithLabelValues(att.provider.Name(), "error").Inc()
		return "", newProviderError(att.provider.Name(), err)
	}

	metrics.ProviderRequests.WithLabelValues(att.provider.Name(), "ok").Inc()
	log.Debug().
		Str("provider", att.provider.Name()).
		Dur("took", time.Since(start)).
		Int("response_chars", len(out)).
		Msg("Generation attempt succeeded")
	return out, nil
}

// Sample configs ship with recognizable stand-in credentials; treating them
// as real keys would send every call into a doomed remote attempt.
var placeholderNeedles = []string{
	"your-",
	"changeme",
	"change-me",
	"placeholder",
	"api-key-here",
	"xxxx",
	"<",
}

// IsPlaceholderKey reports whether the credential is absent, blank, or one
// of the known sample placeholders.
func IsPlaceholderKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" {
		return true
	}
	for _, needle := range placeholderNeedles {
		if strings.Contains(k, needle) {
			return true
		}
	}
	return false
}
