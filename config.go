package tabular

import "time"

// Protocol constants advertised during the handshake (spec.md §4.5).
const (
	ClientVersionMajor    = 1
	ClientVersionMinor    = 0
	ClientProtocolVersion = 54451
	defaultClientName     = "go-tabular"
)

// Config is the fully-resolved set of parameters a Connection or Pool
// is built from. It is produced by NewConfig, which applies functional
// Options and then overlays the fields a DSN sets, mirroring the teacher's
// Config-struct-with-functional-defaults style, generalized so the DSN
// always wins over an Option that sets the same field (spec.md §6).
type Config struct {
	User        string
	Password    string
	Host        string
	Port        int
	Database    string
	Compression Compression
	Secure      bool
	Verify      bool
	ClientName  string

	ConnectTimeout     time.Duration
	SendReceiveTimeout time.Duration
	SyncRequestTimeout time.Duration

	MinSize int
	MaxSize int

	Logger Logger
}

// Option mutates a Config being built by NewConfig. Options are
// applied before the DSN is overlaid, so any field the DSN specifies
// takes precedence (spec.md §6: "If both DSN and explicit kwargs are
// present, DSN wins").
type Option func(*Config)

// WithPoolSize sets the pool's minimum and maximum connection counts.
func WithPoolSize(minSize, maxSize int) Option {
	return func(c *Config) {
		c.MinSize = minSize
		c.MaxSize = maxSize
	}
}

// WithLogger overrides the default logger.
func WithLogger(l Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithClientName overrides the client_name advertised at handshake.
func WithClientName(name string) Option {
	return func(c *Config) { c.ClientName = name }
}

func defaultConfig() *Config {
	return &Config{
		Port:               defaultPort,
		Database:           defaultDatabase,
		Compression:        CompressionNone,
		ClientName:         defaultClientName,
		ConnectTimeout:     10 * time.Second,
		SendReceiveTimeout: 30 * time.Second,
		SyncRequestTimeout: 5 * time.Second,
		MinSize:            1,
		MaxSize:            10,
		Logger:             defaultLogger(),
	}
}

// NewConfig parses dsn and applies opts as defaults, with any field the
// DSN itself specifies taking precedence.
func NewConfig(dsn string, opts ...Option) (*Config, error) {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}

	d, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	c.User = d.User
	c.Password = d.Password
	c.Host = d.Host
	c.Port = d.Port
	c.Database = d.Database
	c.Compression = d.Compression
	c.Secure = d.Secure
	c.Verify = d.Verify
	if d.ClientName != "" {
		c.ClientName = d.ClientName
	}
	if d.ConnectTimeout > 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if d.SendReceiveTimeout > 0 {
		c.SendReceiveTimeout = d.SendReceiveTimeout
	}
	if d.SyncRequestTimeout > 0 {
		c.SyncRequestTimeout = d.SyncRequestTimeout
	}
	return c, nil
}
