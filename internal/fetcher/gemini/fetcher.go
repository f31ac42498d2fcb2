// Package geminifetcher implements the crawler's network contract over the
// Gemini protocol.
package geminifetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/a-h/gemini"
	"go.uber.org/zap"

	"github.com/JakeFAU/gemini-search/internal/gemurl"
)

// Typed fetch failures. Timeouts and network failures count against a host.
var (
	ErrTimeout          = errors.New("timeout")
	ErrNetwork          = errors.New("network failure")
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrRedirectLoop     = errors.New("redirect loop")
	ErrBadRedirect      = errors.New("invalid redirect target")
	ErrTooLarge         = errors.New("response exceeds size cap")
	ErrBadHeader        = errors.New("malformed response header")
)

// DefaultIndexMIMEs are the content types whose bodies are downloaded by the
// crawler. Other successful responses are recorded without a body.
var DefaultIndexMIMEs = []string{"text/gemini", "text/plain", "text/markdown", "text/x-rst", "plaintext"}

// Options bound a single fetch.
type Options struct {
	// Timeout caps connecting and reading the response header.
	Timeout time.Duration
	// MaxTransferTime caps the whole exchange including the body.
	MaxTransferTime time.Duration
	// MaxBytes caps the body size. Zero disables the cap.
	MaxBytes int64
	// MaxRedirects is the number of 3x hops followed before giving up.
	MaxRedirects int
	// AcceptMIME lists the MIME types whose body is read. Empty accepts all.
	AcceptMIME []string
	// CheckRedirect, when set, may veto a redirect target.
	CheckRedirect func(target gemurl.URL) error
}

// Response is the outcome of a fetch after redirects.
type Response struct {
	URL         gemurl.URL
	Status      int
	Meta        string
	Body        []byte
	BodySkipped bool
	Redirects   int
	Duration    time.Duration
}

// Class returns the leading digit of the status code.
func (r Response) Class() int {
	return r.Status / 10
}

type rawResponse struct {
	code string
	meta string
	body io.ReadCloser
}

// transport performs a single Gemini request.
type transport interface {
	Do(ctx context.Context, u *url.URL) (rawResponse, error)
}

// Fetcher fetches Gemini resources.
type Fetcher struct {
	defaults  Options
	transport transport
	logger    *zap.Logger
}

// New builds a Fetcher backed by a TOFU Gemini client.
func New(defaults Options, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		defaults:  defaults,
		transport: &tofuTransport{client: gemini.NewClient(), logger: logger},
		logger:    logger,
	}
}

// Defaults returns the options used when Fetch is called with zero Options.
func (f *Fetcher) Defaults() Options {
	return f.defaults
}

// Fetch retrieves u, following redirects. Zero-valued fields in opts fall
// back to the fetcher defaults.
func (f *Fetcher) Fetch(ctx context.Context, u gemurl.URL, opts Options) (Response, error) {
	opts = f.merge(opts)
	start := time.Now()
	if opts.MaxTransferTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.MaxTransferTime)
		defer cancel()
	}

	seen := map[string]struct{}{u.String(): {}}
	current := u
	for hops := 0; ; hops++ {
		resp, err := f.fetchOnce(ctx, current, opts)
		if err != nil {
			return Response{}, err
		}
		resp.Redirects = hops
		resp.Duration = time.Since(start)
		if resp.Class() != 3 {
			return resp, nil
		}

		target, err := redirectTarget(current, resp.Meta)
		if err != nil {
			return resp, err
		}
		if hops+1 > opts.MaxRedirects {
			return resp, fmt.Errorf("%w: %d hops from %s", ErrTooManyRedirects, hops+1, u.String())
		}
		if _, ok := seen[target.String()]; ok {
			return resp, fmt.Errorf("%w: %s", ErrRedirectLoop, target.String())
		}
		if opts.CheckRedirect != nil {
			if err := opts.CheckRedirect(target); err != nil {
				return resp, err
			}
		}
		seen[target.String()] = struct{}{}
		f.logger.Debug("following redirect",
			zap.String("from", current.String()),
			zap.String("to", target.String()))
		current = target
	}
}

func (f *Fetcher) merge(opts Options) Options {
	if opts.Timeout == 0 {
		opts.Timeout = f.defaults.Timeout
	}
	if opts.MaxTransferTime == 0 {
		opts.MaxTransferTime = f.defaults.MaxTransferTime
	}
	if opts.MaxBytes == 0 {
		opts.MaxBytes = f.defaults.MaxBytes
	}
	if opts.MaxRedirects == 0 {
		opts.MaxRedirects = f.defaults.MaxRedirects
	}
	if opts.AcceptMIME == nil {
		opts.AcceptMIME = f.defaults.AcceptMIME
	}
	if opts.CheckRedirect == nil {
		opts.CheckRedirect = f.defaults.CheckRedirect
	}
	return opts
}

func (f *Fetcher) fetchOnce(ctx context.Context, u gemurl.URL, opts Options) (Response, error) {
	target, err := url.Parse(u.String())
	if err != nil {
		return Response{}, fmt.Errorf("parse url %s: %w", u.String(), err)
	}

	headerCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		headerCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	raw, err := f.transport.Do(headerCtx, target)
	if err != nil {
		return Response{}, classify(err)
	}
	defer raw.body.Close()

	status, err := strconv.Atoi(raw.code)
	if err != nil || status < 10 || status > 69 {
		return Response{}, fmt.Errorf("%w: status %q", ErrBadHeader, raw.code)
	}
	resp := Response{URL: u, Status: status, Meta: raw.meta}
	if resp.Class() != 2 {
		return resp, nil
	}
	mime, _ := ParseMeta(raw.meta)
	if !accepts(opts.AcceptMIME, mime) {
		resp.BodySkipped = true
		return resp, nil
	}

	body, err := readBody(ctx, raw.body, opts.MaxBytes)
	if err != nil {
		return Response{}, err
	}
	resp.Body = body
	return resp, nil
}

// readBody reads at most limit bytes, aborting when ctx expires.
func readBody(ctx context.Context, body io.ReadCloser, limit int64) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		r := io.Reader(body)
		if limit > 0 {
			r = io.LimitReader(body, limit+1)
		}
		data, err := io.ReadAll(r)
		done <- result{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		_ = body.Close()
		return nil, classify(ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, classify(res.err)
		}
		if limit > 0 && int64(len(res.data)) > limit {
			return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
		}
		return res.data, nil
	}
}

func redirectTarget(from gemurl.URL, meta string) (gemurl.URL, error) {
	ref, err := url.Parse(meta)
	if err != nil || meta == "" {
		return gemurl.URL{}, fmt.Errorf("%w: %q", ErrBadRedirect, meta)
	}
	base, err := url.Parse(from.String())
	if err != nil {
		return gemurl.URL{}, fmt.Errorf("%w: %q", ErrBadRedirect, meta)
	}
	target := gemurl.Parse(base.ResolveReference(ref).String())
	if !target.Valid() || target.Protocol() != from.Protocol() {
		return gemurl.URL{}, fmt.Errorf("%w: %q", ErrBadRedirect, meta)
	}
	return target.WithFragment(""), nil
}

func accepts(allowed []string, mime string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, m := range allowed {
		if m == mime {
			return true
		}
	}
	return false
}

// classify maps transport errors onto ErrTimeout or ErrNetwork.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrNetwork) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// IsHostFailure reports whether err should count against the host.
func IsHostFailure(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrNetwork)
}
