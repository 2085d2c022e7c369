// Package registry is the module boundary: it declares which types a host
// may construct and keeps the constructed values behind opaque handles.
package registry

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	apperrors "github.com/agbru/optix/internal/errors"
)

// Handle is an opaque reference to a constructed value. Handles are never
// reused within a Module, so a released handle stays invalid.
type Handle uint64

// Constructor builds a value from host-supplied arguments.
type Constructor func(args ...any) (any, error)

// TypeSpec declares one constructible type.
type TypeSpec struct {
	Name string
	New  Constructor
}

// Module holds the registered types and the arena of live values.
type Module struct {
	mu     sync.Mutex
	types  map[string]Constructor
	arena  map[Handle]entry
	next   Handle
	logger zerolog.Logger
}

type entry struct {
	typ   string
	value any
}

// Option configures a Module.
type Option func(*Module)

// WithLogger sets the module logger.
func WithLogger(l zerolog.Logger) Option { return func(m *Module) { m.logger = l } }

// NewModule returns an empty Module.
func NewModule(opts ...Option) *Module {
	m := &Module{
		types:  make(map[string]Constructor),
		arena:  make(map[Handle]entry),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register exposes specs. Every spec is validated before any is exposed:
// on error the module is left exactly as it was.
func (m *Module) Register(specs ...TypeSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		switch {
		case s.Name == "":
			return apperrors.RegistrationError{Type: s.Name, Message: "empty type name"}
		case s.New == nil:
			return apperrors.RegistrationError{Type: s.Name, Message: "nil constructor"}
		}
		if _, dup := seen[s.Name]; dup {
			return apperrors.RegistrationError{Type: s.Name, Message: "declared twice"}
		}
		if _, exists := m.types[s.Name]; exists {
			return apperrors.RegistrationError{Type: s.Name, Message: "already registered"}
		}
		seen[s.Name] = struct{}{}
	}

	for _, s := range specs {
		m.types[s.Name] = s.New
	}
	m.logger.Debug().Int("count", len(specs)).Msg("types registered")
	return nil
}

// Types returns the registered type names in sorted order.
func (m *Module) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.types))
	for name := range m.types {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Construct builds a value of the named type and returns its handle.
// The constructor runs outside the module lock.
func (m *Module) Construct(name string, args ...any) (Handle, error) {
	m.mu.Lock()
	ctor, ok := m.types[name]
	m.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("construct %q: %w", name, apperrors.ErrUnknownType)
	}

	v, err := ctor(args...)
	if err != nil {
		return 0, fmt.Errorf("construct %q: %w", name, err)
	}

	m.mu.Lock()
	m.next++
	h := m.next
	m.arena[h] = entry{typ: name, value: v}
	m.mu.Unlock()

	m.logger.Debug().Str("type", name).Uint64("handle", uint64(h)).Msg("value constructed")
	return h, nil
}

// Get returns the value behind h.
func (m *Module) Get(h Handle) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.arena[h]
	if !ok {
		return nil, fmt.Errorf("handle %d: %w", h, apperrors.ErrInvalidHandle)
	}
	return e.value, nil
}

// TypeOf returns the registered type name of the value behind h.
func (m *Module) TypeOf(h Handle) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.arena[h]
	if !ok {
		return "", fmt.Errorf("handle %d: %w", h, apperrors.ErrInvalidHandle)
	}
	return e.typ, nil
}

// Lookup returns the value behind h as a T.
func Lookup[T any](m *Module, h Handle) (T, error) {
	var zero T
	v, err := m.Get(h)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("handle %d holds %T, not %T: %w", h, v, zero, apperrors.ErrInvalidHandle)
	}
	return t, nil
}

// Release drops h from the arena, closing the value if it is an io.Closer.
func (m *Module) Release(h Handle) error {
	m.mu.Lock()
	e, ok := m.arena[h]
	delete(m.arena, h)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("handle %d: %w", h, apperrors.ErrInvalidHandle)
	}
	if c, ok := e.value.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Live returns the number of values currently held.
func (m *Module) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.arena)
}

// Close releases every live value and joins their close errors.
func (m *Module) Close() error {
	m.mu.Lock()
	handles := make([]Handle, 0, len(m.arena))
	for h := range m.arena {
		handles = append(handles, h)
	}
	m.mu.Unlock()
	slices.Sort(handles)

	var errs []error
	for _, h := range handles {
		if err := m.Release(h); err != nil && !errors.Is(err, apperrors.ErrInvalidHandle) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
