package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
	"github.com/custodia-labs/connectorctl/internal/core/ports/driven"
	"github.com/custodia-labs/connectorctl/internal/logger"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// DefaultManifestTimeout bounds the manifest handshake.
const DefaultManifestTimeout = 30 * time.Second

// searchPathVars are the environment variables that get the install directory prepended.
var searchPathVars = []string{"PATH", "LD_LIBRARY_PATH", "DYLD_LIBRARY_PATH"}

// Option configures a Loader.
type Option func(*Loader)

// WithEnviron sets the source of the host environment. Defaults to os.Environ.
func WithEnviron(environ func() []string) Option {
	return func(l *Loader) {
		l.environ = environ
	}
}

// WithManifestTimeout bounds the manifest handshake.
func WithManifestTimeout(d time.Duration) Option {
	return func(l *Loader) {
		l.timeout = d
	}
}

// Loader caches one module per binary path.
type Loader struct {
	group   singleflight.Group
	mu      sync.RWMutex
	modules map[string]*domain.Module
	environ func() []string
	timeout time.Duration
}

// New creates a loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		modules: make(map[string]*domain.Module),
		environ: os.Environ,
		timeout: DefaultManifestTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the module for the binary at path, creating it on first use.
// Concurrent loads of the same path share one handshake. Failed loads are
// not cached.
func (l *Loader) Load(ctx context.Context, path string) (*domain.Module, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrLoadFailed, path, err)
	}

	if m := l.cached(abs); m != nil {
		return m, nil
	}

	v, err, shared := l.group.Do(abs, func() (any, error) {
		if m := l.cached(abs); m != nil {
			return m, nil
		}

		m, err := l.load(ctx, abs)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.modules[abs] = m
		l.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug("Shared load of %s", abs)
	}
	return v.(*domain.Module), nil
}

// Loaded returns the number of cached modules.
func (l *Loader) Loaded() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.modules)
}

func (l *Loader) cached(path string) *domain.Module {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modules[path]
}

func (l *Loader) load(ctx context.Context, path string) (*domain.Module, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: connector binary missing: %s", domain.ErrLoadFailed, path)
	}

	dir := filepath.Dir(path)
	module := &domain.Module{
		Path: path,
		Dir:  dir,
		Env:  localFirstEnv(l.environ(), dir),
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := module.Command(ctx, domain.ManifestCommand)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	logger.Debug("Loading connector %s", path)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w: %s", domain.ErrLoadFailed, path, domain.ManifestCommand,
			err, strings.TrimSpace(stderr.String()))
	}

	if err := json.Unmarshal(stdout.Bytes(), &module.Manifest); err != nil {
		return nil, fmt.Errorf("%w: %s: invalid manifest: %w", domain.ErrLoadFailed, path, err)
	}
	if module.Manifest.ID == "" {
		return nil, fmt.Errorf("%w: %s: manifest has no id", domain.ErrLoadFailed, path)
	}

	logger.Debug("Loaded connector %s %s", module.Manifest.ID, module.Manifest.Version)
	return module, nil
}

// localFirstEnv returns environ with dir prepended to every search path variable.
func localFirstEnv(environ []string, dir string) []string {
	env := make([]string, 0, len(environ)+len(searchPathVars))
	found := make(map[string]bool, len(searchPathVars))

	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if name, match := searchPathVar(key); ok && match {
			found[name] = true
			if value != "" {
				value = dir + string(os.PathListSeparator) + value
			} else {
				value = dir
			}
			kv = key + "=" + value
		}
		env = append(env, kv)
	}

	for _, name := range searchPathVars {
		if !found[name] {
			env = append(env, name+"="+dir)
		}
	}
	return env
}

// searchPathVar reports whether key names a search path variable.
// Windows environment keys are case-insensitive.
func searchPathVar(key string) (string, bool) {
	for _, name := range searchPathVars {
		if key == name || (runtime.GOOS == "windows" && strings.EqualFold(key, name)) {
			return name, true
		}
	}
	return "", false
}
