// Package errorreporting forwards unexpected failures to Sentry after stripping
// credentials and customer data from them.
package errorreporting

import (
	"fmt"
	"net/url"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

const redacted = "[REDACTED]"

type scrubRule struct {
	re   *regexp.Regexp
	repl string
}

// Rules run in order; connection strings go first so the email rule does not eat
// "password@host".
var scrubRules = []scrubRule{
	{regexp.MustCompile(`(?i)\b(postgres(?:ql)?|rediss?)://[^\s/@]*@`), "$1://" + redacted + "@"},
	// Cache keys embed user ids and raw search terms.
	{regexp.MustCompile(`\b(user:session|user:wishlist|search:history|product:search):[^\s"']+`), "$1:" + redacted},
	{regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`), redacted},
	{regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`), redacted},
	{regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password)["\s:=]+[a-zA-Z0-9._-]{16,}`), redacted},
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), redacted},
	{regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`), redacted},
}

// Request headers never forwarded.
var sensitiveHeaders = []string{"Authorization", "Cookie", "X-Api-Key", "Apikey"}

var enabled atomic.Bool

// Options configures Sentry.
type Options struct {
	DSN         string
	Environment string
	Release     string
	SampleRate  float64 // 0.0 to 1.0; out-of-range values mean 1.0
}

// Init configures the Sentry client. An empty DSN leaves reporting disabled and is
// not an error.
func Init(opts Options) error {
	if opts.DSN == "" {
		return nil
	}
	if err := ValidateDSN(opts.DSN); err != nil {
		return err
	}
	if opts.Release == "" {
		opts.Release = "dev"
	}
	if opts.SampleRate <= 0 || opts.SampleRate > 1 {
		opts.SampleRate = 1.0
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		SampleRate:       opts.SampleRate,
		BeforeSend:       beforeSend,
		AttachStacktrace: true,
	}); err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	enabled.Store(true)
	return nil
}

func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.Message = ScrubPII(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = ScrubPII(event.Exception[i].Value)
	}
	for key, value := range event.Extra {
		if s, ok := value.(string); ok {
			event.Extra[key] = ScrubPII(s)
		}
	}
	if event.Request != nil {
		for _, h := range sensitiveHeaders {
			delete(event.Request.Headers, h)
		}
		// Query strings carry search terms and user ids.
		event.Request.QueryString = ""
		event.Request.URL = ScrubPII(event.Request.URL)
	}
	return event
}

// ScrubPII removes credentials and personal data from text.
func ScrubPII(text string) string {
	for _, r := range scrubRules {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	return text
}

// CaptureErrorWithContext reports err with tags and extras. Extras are scrubbed by
// beforeSend. It is a no-op for nil errors and when Sentry is disabled.
func CaptureErrorWithContext(err error, tags map[string]string, extras map[string]interface{}) {
	if err == nil || !enabled.Load() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		for k, v := range extras {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Flush waits up to timeout for queued events.
func Flush(timeout time.Duration) bool {
	if !enabled.Load() {
		return true
	}
	return sentry.Flush(timeout)
}

// IsSentryEnabled reports whether Init configured a client.
func IsSentryEnabled() bool {
	return enabled.Load()
}

// ValidateDSN checks that dsn is an http(s) URL with a public key and a project path.
func ValidateDSN(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" || u.User == nil || len(u.Path) < 2 {
		return fmt.Errorf("invalid Sentry DSN format")
	}
	return nil
}
