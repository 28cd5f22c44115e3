package di_test

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/sghaida/scoped/di"
)

// ---- shared fixtures ----

type greeting struct{ Text string }

type counter struct {
	mu    sync.Mutex
	calls map[string]int
}

func newCounter() *counter { return &counter{calls: map[string]int{}} }

func (c *counter) inc(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[name]++
}

func (c *counter) get(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

// recorder keeps the order of teardown events.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

var (
	tInt      = di.TypeFor[int]()
	tString   = di.TypeFor[string]()
	tGreeting = di.TypeFor[*greeting]()
)

func providers(ps ...*di.Provider) []*di.Provider { return ps }

func itoa(i int) string { return strconv.Itoa(i) }

// greetingProvider is the int -> greeting example: int in APP, greeting in REQUEST.
func greetingProvider(calls *counter) *di.Provider {
	p := di.NewProvider(di.ProviderScope(di.App))
	p.ProvideValue(tInt, 1)
	p.Provide(tGreeting, func(d di.Deps) (any, error) {
		calls.inc("greeting")
		return &greeting{Text: fmt.Sprintf("%d", di.Arg[int](d, 0))}, nil
	}, di.RequiresTypes(tInt), di.InScope(di.Request))
	return p
}
