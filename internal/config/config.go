// Package config builds the immutable startup configuration for the static file server.
// Values are layered from defaults, an optional YAML file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values used when neither a config file nor a flag provides one.
const (
	DefaultRoot            = "public"
	DefaultPort            = 4173
	DefaultChunkSize       = ByteSize(32 * 1024)
	DefaultShutdownTimeout = 5 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"

	MinChunkSize = ByteSize(512)
	MaxChunkSize = ByteSize(16 * 1024 * 1024)
)

// Sentinel errors for configuration validation
var (
	ErrRootRequired     = errors.New("root directory is required")
	ErrRootNotFound     = errors.New("root directory does not exist")
	ErrRootNotDirectory = errors.New("root is not a directory")
	ErrInvalidPort      = errors.New("port must be between 0 and 65535")
	ErrInvalidChunkSize = errors.New("chunk size out of range")
	ErrInvalidTimeout   = errors.New("shutdown timeout must not be negative")
)

// ConfigError reports a startup configuration problem. It is always fatal.
type ConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LogConfig represents logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Options is the mutable layer that files and flags write into before New
// freezes it into a ServerConfig.
type Options struct {
	Root            string    `yaml:"root"`
	Host            string    `yaml:"host"`
	Port            int       `yaml:"port"`
	ChunkSize       ByteSize  `yaml:"chunk_size"`
	ShutdownTimeout Duration  `yaml:"shutdown_timeout"`
	Log             LogConfig `yaml:"log"`
}

// DefaultOptions returns the options used when nothing else is configured.
func DefaultOptions() Options {
	return Options{
		Root:            DefaultRoot,
		Port:            DefaultPort,
		ChunkSize:       DefaultChunkSize,
		ShutdownTimeout: Duration(DefaultShutdownTimeout),
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// LoadFile reads a YAML file on top of the receiver. Keys absent from the
// file keep their current values.
func (o *Options) LoadFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return &ConfigError{Field: "config file", Value: filePath, Err: err}
	}
	if err := yaml.Unmarshal(data, o); err != nil {
		return &ConfigError{Field: "config file", Value: filePath, Err: fmt.Errorf("failed to parse: %w", err)}
	}
	return nil
}

// ServerConfig is the validated, read-only configuration shared by every
// request for the lifetime of the process.
type ServerConfig struct {
	root            string
	canonicalRoot   string
	host            string
	port            int
	chunkSize       int
	shutdownTimeout time.Duration
}

// New validates opts and resolves the root directory. The working directory
// anchors a relative root.
func New(opts Options) (ServerConfig, error) {
	if opts.Root == "" {
		return ServerConfig{}, &ConfigError{Field: "root", Err: ErrRootRequired}
	}
	if opts.Port < 0 || opts.Port > 65535 {
		return ServerConfig{}, &ConfigError{Field: "port", Value: strconv.Itoa(opts.Port), Err: ErrInvalidPort}
	}
	if opts.ChunkSize < MinChunkSize || opts.ChunkSize > MaxChunkSize {
		return ServerConfig{}, &ConfigError{
			Field: "chunk size",
			Value: opts.ChunkSize.String(),
			Err:   fmt.Errorf("%w: must be between %s and %s", ErrInvalidChunkSize, MinChunkSize, MaxChunkSize),
		}
	}
	if opts.ShutdownTimeout < 0 {
		return ServerConfig{}, &ConfigError{Field: "shutdown timeout", Value: opts.ShutdownTimeout.String(), Err: ErrInvalidTimeout}
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return ServerConfig{}, &ConfigError{Field: "root", Value: opts.Root, Err: err}
	}
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ServerConfig{}, &ConfigError{Field: "root", Value: root, Err: ErrRootNotFound}
		}
		return ServerConfig{}, &ConfigError{Field: "root", Value: root, Err: err}
	}
	if !info.IsDir() {
		return ServerConfig{}, &ConfigError{Field: "root", Value: root, Err: ErrRootNotDirectory}
	}
	canonical, err := filepath.EvalSymlinks(root)
	if err != nil {
		return ServerConfig{}, &ConfigError{Field: "root", Value: root, Err: err}
	}

	return ServerConfig{
		root:            root,
		canonicalRoot:   canonical,
		host:            opts.Host,
		port:            opts.Port,
		chunkSize:       int(opts.ChunkSize),
		shutdownTimeout: time.Duration(opts.ShutdownTimeout),
	}, nil
}

// Root returns the absolute root directory as configured.
func (c ServerConfig) Root() string { return c.root }

// CanonicalRoot returns the root with all symlinks resolved. Containment
// checks compare against this path.
func (c ServerConfig) CanonicalRoot() string { return c.canonicalRoot }

// Addr returns the host:port listen address. An empty host binds all
// interfaces and port zero asks the kernel for one.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// ChunkSize returns the read/write buffer size used when streaming files.
func (c ServerConfig) ChunkSize() int { return c.chunkSize }

// ShutdownTimeout bounds how long a graceful shutdown waits for in-flight
// responses.
func (c ServerConfig) ShutdownTimeout() time.Duration { return c.shutdownTimeout }
