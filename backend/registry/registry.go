package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/autom8ter/gamedb/backend"
	"github.com/autom8ter/gamedb/errors"
	"github.com/samber/lo"
)

// Opener opens a backend from its named parameters
type Opener func(params map[string]any) (backend.Backend, error)

type registration struct {
	kind   string
	args   []string
	opener Opener
}

var (
	mu         sync.RWMutex
	registered = map[string]registration{}
)

// Register registers an Opener under a backend kind. args names the positional parameters the kind takes in a
// connection string, in order. Register is meant to be called from a backend package's init function.
func Register(kind string, args []string, opener Opener) {
	mu.Lock()
	defer mu.Unlock()
	registered[strings.ToLower(kind)] = registration{
		kind:   kind,
		args:   args,
		opener: opener,
	}
}

// Kinds returns the registered backend kinds
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	kinds := lo.Map(lo.Values(registered), func(r registration, _ int) string { return r.kind })
	sort.Strings(kinds)
	return kinds
}

// Usage returns the connection string form of a registered kind, ex: "JSON <storage_dir>"
func Usage(kind string) string {
	mu.RLock()
	defer mu.RUnlock()
	r, ok := registered[strings.ToLower(kind)]
	if !ok {
		return ""
	}
	return strings.Join(append([]string{r.kind}, lo.Map(r.args, func(a string, _ int) string {
		return "<" + a + ">"
	})...), " ")
}

// Open opens a registered backend with named parameters
func Open(kind string, params map[string]any) (backend.Backend, error) {
	mu.RLock()
	r, ok := registered[strings.ToLower(kind)]
	mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.UnsupportedBackend, "%s is not registered", kind)
	}
	for _, a := range r.args {
		if _, ok := params[a]; !ok {
			return nil, errors.New(errors.UnsupportedBackend, "%s: missing parameter %s", r.kind, a)
		}
	}
	return r.opener(params)
}

// OpenConnection opens a backend from a connection string: a backend keyword followed by whitespace separated
// positional parameters, ex: "JSON ./data", "Mongo mongodb://localhost:27017 game", "Memory".
// The keyword is case-insensitive and the parameter count must match exactly.
func OpenConnection(conn string) (backend.Backend, error) {
	kind, params, err := ParseConnection(conn)
	if err != nil {
		return nil, err
	}
	return Open(kind, params)
}

// ParseConnection splits a connection string into its backend kind and named parameters. Parameters are split on
// whitespace with no quoting, so a parameter containing spaces can only be passed to Open directly.
func ParseConnection(conn string) (string, map[string]any, error) {
	parts := strings.Fields(conn)
	if len(parts) == 0 {
		return "", nil, errors.New(errors.UnsupportedBackend, "empty connection string")
	}
	mu.RLock()
	r, ok := registered[strings.ToLower(parts[0])]
	mu.RUnlock()
	if !ok {
		return "", nil, errors.New(errors.UnsupportedBackend, "unknown backend %q", parts[0])
	}
	if len(parts)-1 != len(r.args) {
		return "", nil, errors.New(errors.UnsupportedBackend, "%s: expected %d parameter(s) (%s), got %d",
			r.kind, len(r.args), Usage(r.kind), len(parts)-1)
	}
	params := make(map[string]any, len(r.args))
	for i, a := range r.args {
		params[a] = parts[i+1]
	}
	return r.kind, params, nil
}
