// Package config loads capture client settings from a file and the
// environment, hot-reloading them when the file changes on disk.
package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/lgc202/httptrail/trail"
)

// Settings is the file- and environment-configurable surface of a capture
// client. Zero values defer to the defaults set by Load.
type Settings struct {
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	ProxyURL    string        `mapstructure:"proxy_url"`

	FollowRedirects bool `mapstructure:"follow_redirects"`
	MaxRedirects    int  `mapstructure:"max_redirects"`

	UserAgent string            `mapstructure:"user_agent"`
	Headers   map[string]string `mapstructure:"headers"`

	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
	DisableTrace bool  `mapstructure:"disable_trace"`

	LogLevel string `mapstructure:"log_level"`
}

// ClientOptions converts the settings into construction options for a
// capture client.
func (s Settings) ClientOptions() ([]trail.Option, error) {
	var opts []trail.Option
	if s.BaseURL != "" {
		opts = append(opts, trail.WithBaseURL(s.BaseURL))
	}
	if s.Timeout > 0 {
		opts = append(opts, trail.WithTimeout(s.Timeout))
	}
	if s.DialTimeout > 0 {
		opts = append(opts, trail.WithDialTimeout(s.DialTimeout))
	}
	if s.ProxyURL != "" {
		u, err := url.Parse(s.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("proxy_url: %w", err)
		}
		opts = append(opts, trail.WithProxy(http.ProxyURL(u)))
	}
	if !s.FollowRedirects {
		opts = append(opts, trail.WithoutRedirects())
	} else if s.MaxRedirects > 0 {
		opts = append(opts, trail.WithMaxRedirects(s.MaxRedirects))
	}
	if s.UserAgent != "" {
		opts = append(opts, trail.WithUserAgent(s.UserAgent))
	}
	for k, v := range s.Headers {
		opts = append(opts, trail.WithDefaultHeader(k, v))
	}
	if s.MaxBodyBytes > 0 {
		opts = append(opts, trail.WithMaxBodyBytes(s.MaxBodyBytes))
	}
	if s.DisableTrace {
		opts = append(opts, trail.WithoutTrace())
	}
	return opts, nil
}

// Loader owns a settings file: it parses it once at Load and keeps the
// parsed value fresh while the file changes underneath.
type Loader struct {
	v        *viper.Viper
	mu       sync.RWMutex
	current  Settings
	watchers []func(old, new Settings)
}

// Option customizes a Loader before the file is read.
type Option func(*Loader)

// WithEnv binds environment variables with the given prefix, so
// PREFIX_BASE_URL overrides base_url and so on.
func WithEnv(prefix string) Option {
	return func(l *Loader) {
		l.v.SetEnvPrefix(prefix)
		l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		l.v.AutomaticEnv()
	}
}

// WithDefaults overrides the package defaults key by key.
func WithDefaults(defaults map[string]any) Option {
	return func(l *Loader) {
		for k, v := range defaults {
			l.v.SetDefault(k, v)
		}
	}
}

// Load parses the settings file at path and starts watching it. An empty
// path skips the file entirely; defaults and bound environment variables
// still apply.
func Load(path string, opts ...Option) (*Loader, error) {
	v := viper.New()
	setDefaults(v)

	l := &Loader{v: v}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, err
	}
	l.current = s

	if path != "" {
		l.watch()
	}
	return l, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("timeout", "30s")
	v.SetDefault("dial_timeout", "5s")
	v.SetDefault("follow_redirects", true)
	v.SetDefault("max_redirects", trail.DefaultMaxHops)
	v.SetDefault("log_level", "info")
}

// Settings returns a deep copy of the current settings.
func (l *Loader) Settings() Settings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return deepCopy(l.current)
}

// OnChange registers a callback invoked after the file changed and produced
// different settings. Callbacks run on the watcher goroutine.
func (l *Loader) OnChange(fn func(old, new Settings)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.watchers = append(l.watchers, fn)
}

// deepCopy round-trips through JSON so callers can never alias the Headers
// map held by the loader.
func deepCopy(src Settings) Settings {
	var dst Settings
	data, _ := json.Marshal(src)
	_ = json.Unmarshal(data, &dst)
	return dst
}

// watch installs a debounced change handler: editors often emit several
// write events per save.
func (l *Loader) watch() {
	var (
		debounceTimer *time.Timer
		debounceMu    sync.Mutex
	)

	l.v.OnConfigChange(func(_ fsnotify.Event) {
		debounceMu.Lock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
			l.handleChange()
		})
		debounceMu.Unlock()
	})

	l.v.WatchConfig()
}

func (l *Loader) handleChange() {
	old := l.Settings()

	fresh, watchers, ok := l.reload()
	if !ok {
		return
	}
	if reflect.DeepEqual(old, fresh) {
		return
	}
	for _, cb := range watchers {
		func() {
			defer func() { _ = recover() }()
			cb(old, fresh)
		}()
	}
}

func (l *Loader) reload() (Settings, []func(old, new Settings), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.v.ReadInConfig(); err != nil {
		return Settings{}, nil, false
	}
	var s Settings
	if err := l.v.Unmarshal(&s); err != nil {
		return Settings{}, nil, false
	}
	l.current = s

	watchers := make([]func(old, new Settings), len(l.watchers))
	copy(watchers, l.watchers)
	return deepCopy(s), watchers, true
}
