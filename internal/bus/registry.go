package bus

import (
	"sort"
	"sync"

	"github.com/armazcape/armazd/internal/machine"
)

// Handler executes one command against the shared machine store. The
// target path arrives canonicalized; the returned strings become the ok
// reply arguments. Handlers run inline inside a dispatcher consumer and
// must not block.
type Handler func(target machine.Path, args []string) ([]string, error)

// Registry maps command aliases to handlers. It is populated once at
// startup and read-only afterwards; the lock exists so concurrent
// dispatcher consumers can resolve safely.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds alias to handler. A duplicate alias is rejected, not
// overwritten, so wiring bugs surface at startup.
func (r *Registry) Register(alias string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[alias]; exists {
		return DuplicateAliasError{Alias: alias}
	}
	r.handlers[alias] = h
	return nil
}

// Resolve looks up the handler bound to a command name.
func (r *Registry) Resolve(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[name]
	if !ok {
		return nil, UnknownCommandError{Name: name}
	}
	return h, nil
}

// Aliases returns the registered aliases in sorted order.
func (r *Registry) Aliases() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	aliases := make([]string, 0, len(r.handlers))
	for a := range r.handlers {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)
	return aliases
}
