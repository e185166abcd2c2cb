// Package config provides the layered configuration resolver for the
// Defender console client. Compiled-in defaults are reconciled with a
// runtime-injected override (an optional override file plus DEFENDER_*
// environment variables) once at bootstrap; the resolved AppConfig is
// immutable afterwards.
package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/flmelody/defender-console-go/pkg/interfaces"
	"github.com/flmelody/defender-console-go/pkg/types"
)

// Compiled-time defaults. Overridable at build time via
// -ldflags "-X github.com/flmelody/defender-console-go/pkg/config.buildBackendHost=...",
// mirroring how the deployment bakes BACKEND_HOST / ROOT_PATH / GUARD_PATH /
// ADMIN_PATH into both frontend and backend.
var (
	buildBackendHost = "http://localhost:9999/wall"
	buildRootPath    = "/wall"
	buildGuardPath   = "/guard"
	buildAdminPath   = "/admin"
	buildGuardDomain = ""
)

// AppConfig holds the resolved mount paths and backend location shared by
// the two console apps.
type AppConfig struct {
	BaseURL     string `mapstructure:"base_url" json:"base_url" yaml:"base_url" validate:"required"`
	RootPath    string `mapstructure:"root_path" json:"root_path" yaml:"root_path" validate:"required"`
	GuardPath   string `mapstructure:"guard_path" json:"guard_path" yaml:"guard_path" validate:"required"`
	AdminPath   string `mapstructure:"admin_path" json:"admin_path" yaml:"admin_path" validate:"required"`
	GuardDomain string `mapstructure:"guard_domain" json:"guard_domain,omitempty" yaml:"guard_domain,omitempty"`
}

var repeatedSlashes = regexp.MustCompile(`/+`)

// normalizePath collapses repeated path separators.
func normalizePath(p string) string {
	return repeatedSlashes.ReplaceAllString(p, "/")
}

// PagePath returns the absolute mount path for the given app: the shared
// root prefix joined with the app-specific sub-path, with repeated
// separators collapsed. Unset fields fall back to the compiled defaults so
// the result is always usable.
func (c *AppConfig) PagePath(kind types.AppKind) string {
	rootPath := c.RootPath
	if rootPath == "" {
		rootPath = buildRootPath
	}
	var pagePath string
	if kind == types.AppGuard {
		pagePath = c.GuardPath
		if pagePath == "" {
			pagePath = buildGuardPath
		}
	} else {
		pagePath = c.AdminPath
		if pagePath == "" {
			pagePath = buildAdminPath
		}
	}
	return normalizePath(rootPath + pagePath)
}

// LoginPath returns the absolute login route for the given app.
func (c *AppConfig) LoginPath(kind types.AppKind) string {
	return normalizePath(c.PagePath(kind) + "/login")
}

// Resolver computes the effective AppConfig from compiled defaults and the
// runtime override. Resolution never fails: a missing or malformed override
// is treated as absent and logged, never propagated.
type Resolver struct {
	// OverrideFile is the optional runtime-injected override document
	// (JSON or YAML). Empty means no file override.
	OverrideFile string

	Logger interfaces.Logger

	validate *validator.Validate
}

// NewResolver creates a resolver reading the given override file.
func NewResolver(overrideFile string, logger interfaces.Logger) *Resolver {
	return &Resolver{
		OverrideFile: overrideFile,
		Logger:       logger,
		validate:     validator.New(),
	}
}

// Resolve computes the effective configuration. For each field the runtime
// override wins when present and non-empty; absent keys fall back to the
// compiled default. Identical inputs yield identical outputs.
func (r *Resolver) Resolve() *AppConfig {
	v := viper.New()
	v.SetDefault("base_url", buildBackendHost)
	v.SetDefault("root_path", buildRootPath)
	v.SetDefault("guard_path", buildGuardPath)
	v.SetDefault("admin_path", buildAdminPath)
	v.SetDefault("guard_domain", buildGuardDomain)

	v.SetEnvPrefix("DEFENDER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"base_url", "root_path", "guard_path", "admin_path", "guard_domain"} {
		_ = v.BindEnv(key)
	}

	if r.OverrideFile != "" {
		if _, err := os.Stat(r.OverrideFile); err == nil {
			v.SetConfigFile(r.OverrideFile)
			if err := v.ReadInConfig(); err != nil {
				r.warn("ignoring malformed config override", map[string]interface{}{
					"file": r.OverrideFile, "error": err.Error(),
				})
			}
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		r.warn("ignoring undecodable config override", map[string]interface{}{"error": err.Error()})
		return defaults()
	}

	// An override may set a key to the empty string; empty never beats the
	// compiled default.
	d := defaults()
	if cfg.BaseURL == "" {
		cfg.BaseURL = d.BaseURL
	}
	if cfg.RootPath == "" {
		cfg.RootPath = d.RootPath
	}
	if cfg.GuardPath == "" {
		cfg.GuardPath = d.GuardPath
	}
	if cfg.AdminPath == "" {
		cfg.AdminPath = d.AdminPath
	}

	if err := r.validate.Struct(cfg); err != nil {
		r.warn("config override failed validation, using compiled defaults", map[string]interface{}{"error": err.Error()})
		return d
	}
	return cfg
}

func (r *Resolver) warn(msg string, fields map[string]interface{}) {
	if r.Logger != nil {
		r.Logger.Warn(msg, fields)
	}
}

func defaults() *AppConfig {
	return &AppConfig{
		BaseURL:     buildBackendHost,
		RootPath:    buildRootPath,
		GuardPath:   buildGuardPath,
		AdminPath:   buildAdminPath,
		GuardDomain: buildGuardDomain,
	}
}

// Watch observes the override file after bootstrap. The resolved config
// stays immutable for the process lifetime; a change to the file only logs
// that a restart is required to pick it up. Returns a stop function.
// Watching a resolver without an override file is a no-op.
func (r *Resolver) Watch() (stop func(), err error) {
	if r.OverrideFile == "" {
		return func() {}, nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(r.OverrideFile); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					r.warn("config override changed on disk; restart to apply", map[string]interface{}{
						"file": r.OverrideFile,
					})
				}
			case <-watcher.Errors:
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		_ = watcher.Close()
	}, nil
}
