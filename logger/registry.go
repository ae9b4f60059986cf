package logger

import (
	"sync"
)

// components holds loggers registered per component name.
var components = &componentRegistry{
	loggers: make(map[string]*Logger),
}

type componentRegistry struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}

// Register stores base, tagged with the component name, for each of
// components. Earlier registrations under the same name are replaced.
func Register(base *Logger, names ...string) {
	components.mu.Lock()
	defer components.mu.Unlock()
	for _, name := range names {
		components.loggers[name] = base.WithComponent(name)
	}
}

// Get returns the logger registered for name. Unregistered names get the
// current global logger tagged with name; the result is not stored, so a
// later SetGlobalLogger still reaches them.
func Get(name string) *Logger {
	components.mu.RLock()
	l, ok := components.loggers[name]
	components.mu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}
