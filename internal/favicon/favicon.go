// Package favicon serves /favicon.ico from memory with conditional GET support.
package favicon

import (
	"math"
	"net/http"
	"sync/atomic"

	"github.com/iTrooz/favicon-cache/internal/cache"
	"github.com/iTrooz/favicon-cache/internal/cache/httpcache"

	"github.com/sirupsen/logrus"
)

const (
	// Path is the only request path the middleware answers
	Path = "/favicon.ico"
	// ContentType of the served icon
	ContentType = "image/x-icon"

	DefaultIconPath     = "public/favicon.ico"
	DefaultMaxCacheDays = 365

	allowedMethods = "GET, HEAD, OPTIONS"
	secondsPerDay  = 24 * 60 * 60
)

// Options configures the middleware. Unset fields take their default.
type Options struct {
	// IconPath is the icon file, relative to the source root
	IconPath string
	// MaxCacheDays is advertised to clients through Cache-Control.
	// nil means DefaultMaxCacheDays, zero means max-age=0.
	MaxCacheDays *int
}

// Days returns a MaxCacheDays value
func Days(n int) *int {
	return &n
}

func (o Options) withDefaults() Options {
	if o.IconPath == "" {
		o.IconPath = DefaultIconPath
	}
	if o.MaxCacheDays == nil || *o.MaxCacheDays < 0 {
		o.MaxCacheDays = Days(DefaultMaxCacheDays)
	} else {
		o.MaxCacheDays = Days(*o.MaxCacheDays)
	}
	return o
}

// CacheDays returns MaxCacheDays, or the default when unset
func (o Options) CacheDays() int {
	if o.MaxCacheDays == nil {
		return DefaultMaxCacheDays
	}
	return *o.MaxCacheDays
}

// MaxAgeSeconds returns the Cache-Control max-age, clamped to what fits an int64
func (o Options) MaxAgeSeconds() int64 {
	days := int64(o.CacheDays())
	if days > math.MaxInt64/secondsPerDay {
		return math.MaxInt64 / secondsPerDay * secondsPerDay
	}
	return days * secondsPerDay
}

// state is swapped as a whole on Configure
type state struct {
	opts Options
	icon *cache.Buffer
}

// Middleware serves the favicon and passes every other request through
type Middleware struct {
	src   cache.Source
	state atomic.Pointer[state]

	// ErrorHandler is called when the icon cannot be read.
	// Defaults to logging the error and answering 500.
	ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)
}

// New creates a middleware reading the icon from src
func New(src cache.Source, opts Options) *Middleware {
	m := &Middleware{
		src:          src,
		ErrorHandler: defaultErrorHandler,
	}
	m.Configure(opts)
	return m
}

// Configure replaces the options. Meant to be called before serving.
// The cached icon is dropped when the icon path changes.
func (m *Middleware) Configure(opts Options) {
	opts = opts.withDefaults()

	next := &state{opts: opts}
	if prev := m.state.Load(); prev != nil && prev.opts.IconPath == opts.IconPath {
		next.icon = prev.icon
	} else {
		next.icon = cache.NewBuffer(m.src, opts.IconPath)
	}
	m.state.Store(next)

	logrus.Debugf("Favicon configured: icon=%s max-age=%ds", opts.IconPath, opts.MaxAgeSeconds())
}

// Options returns the active options
func (m *Middleware) Options() Options {
	return m.state.Load().opts
}

// Handler wraps next. Requests for Path are answered directly, others go to next.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	if next == nil {
		next = http.NotFoundHandler()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != Path {
			next.ServeHTTP(w, r)
			return
		}
		m.serveIcon(w, r)
	})
}

func (m *Middleware) serveIcon(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		status := http.StatusMethodNotAllowed
		if r.Method == http.MethodOptions {
			status = http.StatusOK
		}
		w.Header().Set("Content-Length", "0")
		w.Header().Set("Allow", allowedMethods)
		w.WriteHeader(status)
		return
	}

	st := m.state.Load()
	icon, err := st.icon.Load(r.Context())
	if err != nil {
		m.ErrorHandler(w, r, err)
		return
	}

	headers := httpcache.For(icon, st.opts.MaxAgeSeconds())

	if httpcache.Fresh(r.Header, headers.Header()) {
		httpcache.Headers{ETag: headers.ETag, CacheControl: headers.CacheControl}.Apply(w.Header())
		w.WriteHeader(http.StatusNotModified)
		return
	}

	headers.Apply(w.Header())
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(icon); err != nil {
		logrus.Errorf("Failed to write favicon: %v", err)
	}
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	logrus.Errorf("Failed to load favicon for %s %s: %v", r.Method, r.URL.Path, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
