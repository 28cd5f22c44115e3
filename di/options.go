package di

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/sghaida/scoped/config"
	"github.com/sghaida/scoped/logger"
)

// options is shared by container construction and scope entry. Entry only
// honours the scope, lock and context options.
type options struct {
	scopes         []Scope
	validation     ValidationSettings
	skipValidation bool
	lock           *bool
	scope          Scope
	scopeName      string
	context        map[Type]any
	log            *logger.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures MakeContainer, MakeAsyncContainer and Enter.
type Option func(*options)

func newOptions(opts []Option) *options {
	o := &options{validation: StrictValidation}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithScopes replaces the default scope set. Scopes must be listed outer to
// inner with strictly increasing levels.
func WithScopes(scopes ...Scope) Option {
	return func(o *options) { o.scopes = append([]Scope(nil), scopes...) }
}

// WithValidation sets the override and decoration checks of the build.
func WithValidation(v ValidationSettings) Option {
	return func(o *options) { o.validation = v }
}

// SkipValidation disables graph validation. Missing factories and cycles
// then surface on first resolution instead of at construction.
func SkipValidation() Option {
	return func(o *options) { o.skipValidation = true }
}

// WithLock makes the container serialize resolution, so a cached key is
// built at most once under concurrent Get calls. Containers returned by
// MakeContainer are locked by default, entered ones are not.
//
// A locked container must not be used by the factories it is running.
func WithLock(enabled bool) Option {
	return func(o *options) { o.lock = &enabled }
}

// WithScope selects the scope to open: the root scope for MakeContainer, the
// child scope for Enter. Skip-marked scopes in between are entered implicitly.
func WithScope(s Scope) Option {
	return func(o *options) {
		o.scope = s
		o.scopeName = ""
	}
}

// WithScopeName is WithScope by name, for scopes read from configuration.
func WithScopeName(name string) Option {
	return func(o *options) {
		o.scope = Scope{}
		o.scopeName = name
	}
}

// WithValue supplies the value of a context variable of type t.
func WithValue(t Type, v any) Option {
	return func(o *options) {
		if o.context == nil {
			o.context = make(map[Type]any)
		}
		o.context[t] = v
	}
}

// WithContext supplies several context variables at once.
func WithContext(values map[Type]any) Option {
	return func(o *options) {
		if o.context == nil {
			o.context = make(map[Type]any, len(values))
		}
		for t, v := range values {
			o.context[t] = v
		}
	}
}

// WithLogger enables engine logging.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithZerolog enables engine logging on an existing zerolog logger.
func WithZerolog(zl zerolog.Logger) Option {
	return func(o *options) { o.log = logger.FromZerolog(zl) }
}

// WithTracerProvider sets the tracer provider. The global one is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider. The global one is used otherwise.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithSettings applies loaded settings. Options given after it win.
func WithSettings(s config.Settings) Option {
	return func(o *options) {
		o.validation = ValidationSettings{
			NothingOverridden: s.Validation.NothingOverridden,
			ImplicitOverride:  s.Validation.ImplicitOverride,
			NothingDecorated:  s.Validation.NothingDecorated,
		}
		o.skipValidation = s.SkipValidation
		lock := s.Lock
		o.lock = &lock
		if s.StartScope != "" {
			o.scope = Scope{}
			o.scopeName = s.StartScope
		}
		if s.Logging {
			cfg := s.Log
			cfg.ApplyDefaults()
			o.log = logger.New(&cfg, "scoped")
		}
	}
}

func (o *options) locked(def bool) bool {
	if o.lock == nil {
		return def
	}
	return *o.lock
}

// target resolves the requested scope against ss, returning -1 when none was
// requested.
func (o *options) target(ss scopeSet) (int, error) {
	switch {
	case !o.scope.IsZero():
		if i := ss.index(o.scope); i >= 0 {
			return i, nil
		}
		return 0, UnknownScopeError{Scope: o.scope}
	case o.scopeName != "":
		s, ok := ss.byName(o.scopeName)
		if !ok {
			return 0, UnknownScopeError{Scope: Scope{Name: o.scopeName}}
		}
		return ss.index(s), nil
	}
	return -1, nil
}
