package agentgate

import (
	"log/slog"
	"time"
)

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	policyPath   string
	registryPath string
	tablesPath   string
	auditPath    string
	reviewDir    string
	remote       string
	timeout      time.Duration
	agentID      string
	agentToken   string
	sessionID    string
	logger       *slog.Logger
}

// WithPolicy sets the path to the policy YAML file.
func WithPolicy(path string) Option {
	return func(c *clientConfig) { c.policyPath = path }
}

// WithRegistry sets the path to the agent registry YAML file.
func WithRegistry(path string) Option {
	return func(c *clientConfig) { c.registryPath = path }
}

// WithTables sets the path to the pattern tables YAML file.
func WithTables(path string) Option {
	return func(c *clientConfig) { c.tablesPath = path }
}

// WithAuditLog writes a receipt for every in-process decision to path.
func WithAuditLog(path string) Option {
	return func(c *clientConfig) { c.auditPath = path }
}

// WithReviewDir queues held calls under dir for a human reviewer.
func WithReviewDir(dir string) Option {
	return func(c *clientConfig) { c.reviewDir = dir }
}

// WithRemote sends decisions to the agentgate server at addr.
func WithRemote(addr string) Option {
	return func(c *clientConfig) { c.remote = addr }
}

// WithTimeout bounds each remote call.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// WithAgent sets the default caller identity.
func WithAgent(id, token string) Option {
	return func(c *clientConfig) {
		c.agentID = id
		c.agentToken = token
	}
}

// WithSession sets the default session id.
func WithSession(id string) Option {
	return func(c *clientConfig) { c.sessionID = id }
}

// WithLogger sets the logger for the in-process pipeline.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}

// WrapOption configures a single Wrap call.
type WrapOption func(*wrapConfig)

type wrapConfig struct {
	allowedTools []string
	trustLevel   string
	screen       bool
}

// WrapWithAllowedTools limits the wrapped function to the named tools.
func WrapWithAllowedTools(tools ...string) WrapOption {
	return func(w *wrapConfig) { w.allowedTools = tools }
}

// WrapWithTrustLevel claims a trust level for calls through this wrap.
func WrapWithTrustLevel(level string) WrapOption {
	return func(w *wrapConfig) { w.trustLevel = level }
}

// WrapScreenOutput screens string results before returning them.
func WrapScreenOutput() WrapOption {
	return func(w *wrapConfig) { w.screen = true }
}
