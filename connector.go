package mysql

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// SocketOption is one TCP socket tuning knob applied right after dial.
type SocketOption struct {
	Name  string // e.g. "TCP_NODELAY", "SO_KEEPALIVE", "SO_RCVBUF"
	Value int    // 0/1 for boolean options, byte count for buffer sizes
}

// Config is the immutable configuration for a Connection. There are no
// mutator methods on *Config: every change is made by deriving a new
// Config through With* options applied to Clone, matching the
// resolution of the "setters return a new value" open question.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	HasPass  bool // distinguishes an absent password from an explicit empty one
	DBName   string

	Collation        string
	Loc              *time.Location
	MaxAllowedPacket int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	Timeout          time.Duration

	TLS     *tls.Config
	SSLMode SSLMode

	SocketOptions []SocketOption

	AllowPublicKeyRetrieval bool
	AllowFallbackToPlaintext bool
	AllowNativePasswords    bool
	AllowOldPasswords       bool
	ClientFoundRows         bool
	ColumnsWithAlias        bool
	MultiStatements         bool
	ParseTime               bool
	RejectReadOnly          bool
	InterpolateParams       bool

	DatabaseTerm DatabaseTerm
	UseCursorFetch    bool
	UseServerPrepStmts bool

	ConnectionAttributes map[string]string

	Debug  bool
	Logger Logger

	// LegacyZeroMetadata restores the documented legacy behavior where
	// ResultSetMetaData.getColumnDisplaySize/getPrecision return 0
	// instead of the column's actual max length/decimals (an explicit
	// Open Question 2).
	LegacyZeroMetadata bool
}

// Option mutates a cloned Config and is applied by NewConfig.
type Option func(*Config)

// NewConfig builds an immutable Config with the driver's defaults, then
// applies opts in order. Each Option receives a private clone, so
// options never observe or mutate a Config shared with the caller.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		Host:             "127.0.0.1",
		Port:             3306,
		Collation:        defaultCollation,
		Loc:              time.UTC,
		MaxAllowedPacket: defaultMaxAllowedPacket,
		SocketOptions:    []SocketOption{{Name: "TCP_NODELAY", Value: 1}},
		AllowNativePasswords: true,
		Logger:           defaultLoggerInstance,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Clone returns a deep-enough copy of c suitable as the basis for a
// derived Config; slices/maps are copied so the clone can be mutated
// freely by a single Option without aliasing the original.
func (c *Config) Clone() *Config {
	cp := *c
	cp.SocketOptions = append([]SocketOption(nil), c.SocketOptions...)
	if c.ConnectionAttributes != nil {
		cp.ConnectionAttributes = make(map[string]string, len(c.ConnectionAttributes))
		for k, v := range c.ConnectionAttributes {
			cp.ConnectionAttributes[k] = v
		}
	}
	return &cp
}

// With applies extra options to a copy of c and returns the result,
// leaving c untouched. This is the general-purpose "setter"
// asks for: every configuration change goes through With (or one of the
// named With* convenience wrappers below).
func (c *Config) With(opts ...Option) *Config {
	cp := c.Clone()
	for _, opt := range opts {
		opt(cp)
	}
	return cp
}

func WithHost(host string) Option  { return func(c *Config) { c.Host = host } }
func WithPort(port int) Option     { return func(c *Config) { c.Port = port } }
func WithUser(user string) Option  { return func(c *Config) { c.User = user } }
func WithPassword(password string) Option {
	return func(c *Config) { c.Password = password; c.HasPass = true }
}
func WithDatabase(name string) Option { return func(c *Config) { c.DBName = name } }
func WithCollation(name string) Option { return func(c *Config) { c.Collation = name } }
func WithLocation(loc *time.Location) Option { return func(c *Config) { c.Loc = loc } }
func WithMaxAllowedPacket(n int) Option {
	return func(c *Config) { c.MaxAllowedPacket = n }
}
func WithReadTimeout(d time.Duration) Option  { return func(c *Config) { c.ReadTimeout = d } }
func WithWriteTimeout(d time.Duration) Option { return func(c *Config) { c.WriteTimeout = d } }
func WithDialTimeout(d time.Duration) Option  { return func(c *Config) { c.Timeout = d } }
func WithSSLMode(mode SSLMode) Option          { return func(c *Config) { c.SSLMode = mode } }
func WithTLSConfig(tlsCfg *tls.Config) Option {
	return func(c *Config) { c.TLS = tlsCfg }
}
func WithSocketOptions(opts ...SocketOption) Option {
	return func(c *Config) { c.SocketOptions = append([]SocketOption(nil), opts...) }
}
func WithAllowPublicKeyRetrieval(v bool) Option {
	return func(c *Config) { c.AllowPublicKeyRetrieval = v }
}
func WithAllowFallbackToPlaintext(v bool) Option {
	return func(c *Config) { c.AllowFallbackToPlaintext = v }
}
func WithClientFoundRows(v bool) Option   { return func(c *Config) { c.ClientFoundRows = v } }
func WithMultiStatements(v bool) Option   { return func(c *Config) { c.MultiStatements = v } }
func WithParseTime(v bool) Option         { return func(c *Config) { c.ParseTime = v } }
func WithRejectReadOnly(v bool) Option    { return func(c *Config) { c.RejectReadOnly = v } }
func WithInterpolateParams(v bool) Option { return func(c *Config) { c.InterpolateParams = v } }
func WithDatabaseTerm(t DatabaseTerm) Option {
	return func(c *Config) { c.DatabaseTerm = t }
}
func WithUseCursorFetch(v bool) Option     { return func(c *Config) { c.UseCursorFetch = v } }
func WithUseServerPrepStmts(v bool) Option { return func(c *Config) { c.UseServerPrepStmts = v } }
func WithDebug(v bool) Option              { return func(c *Config) { c.Debug = v } }
func WithLogger(l Logger) Option           { return func(c *Config) { c.Logger = l } }
func WithConnectionAttribute(key, value string) Option {
	return func(c *Config) {
		if c.ConnectionAttributes == nil {
			c.ConnectionAttributes = map[string]string{}
		}
		c.ConnectionAttributes[key] = value
	}
}
func WithLegacyZeroMetadata(v bool) Option {
	return func(c *Config) { c.LegacyZeroMetadata = v }
}

// Validate checks option ranges/invariants that never depend on the
// server, returning *InvalidArgumentError.
func (c *Config) Validate() error {
	if c.Host == "" {
		return &InvalidArgumentError{Msg: "host must not be empty"}
	}
	if c.Port < 0 || c.Port > 65535 {
		return &InvalidArgumentError{Msg: "port must be in [0, 65535]"}
	}
	if c.MaxAllowedPacket < minMaxAllowedPacket || c.MaxAllowedPacket > maxMaxAllowedPacket {
		return &InvalidArgumentError{Msg: fmt.Sprintf(
			"maxAllowedPacket must be in [%d, %d]", minMaxAllowedPacket, maxMaxAllowedPacket)}
	}
	return nil
}

func (c *Config) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// FormatDSN renders c as a DSN string compatible with database/sql.Open,
// for interop with callers that want the stdlib driver registration
// (see driver.go). Kept from the reference driver's DSN-centric Config model.
func (c *Config) FormatDSN() string {
	var buf strings.Builder
	if c.User != "" {
		buf.WriteString(c.User)
		if c.HasPass {
			buf.WriteByte(':')
			buf.WriteString(c.Password)
		}
		buf.WriteByte('@')
	}
	buf.WriteString("tcp(")
	buf.WriteString(c.addr())
	buf.WriteByte(')')
	buf.WriteByte('/')
	buf.WriteString(c.DBName)

	params := []string{}
	if c.Collation != "" && c.Collation != defaultCollation {
		params = append(params, "collation="+c.Collation)
	}
	if c.ParseTime {
		params = append(params, "parseTime=true")
	}
	if c.MultiStatements {
		params = append(params, "multiStatements=true")
	}
	if len(params) > 0 {
		buf.WriteByte('?')
		buf.WriteString(strings.Join(params, "&"))
	}
	return buf.String()
}

// ParseDSN parses a DSN of the form
// [user[:password]@][protocol[(address)]]/dbname[?param1=value1&...]
// into a Config. Only the "tcp" protocol is supported, matching this
// driver's transport; unix sockets are not in scope.
func ParseDSN(dsn string) (*Config, error) {
	cfg := NewConfig()

	// [user[:password]@]
	if at := strings.LastIndex(dsn, "@"); at != -1 {
		userinfo := dsn[:at]
		dsn = dsn[at+1:]
		if colon := strings.IndexByte(userinfo, ':'); colon != -1 {
			cfg.User = userinfo[:colon]
			cfg.Password = userinfo[colon+1:]
			cfg.HasPass = true
		} else {
			cfg.User = userinfo
		}
	}

	// protocol(address)/dbname?params
	slash := strings.IndexByte(dsn, '/')
	if slash == -1 {
		return nil, &InvalidArgumentError{Msg: "DSN must contain a '/' separating the address from the database name"}
	}
	addrPart := dsn[:slash]
	rest := dsn[slash+1:]

	if addrPart != "" {
		open := strings.IndexByte(addrPart, '(')
		proto := addrPart
		hostport := ""
		if open != -1 {
			proto = addrPart[:open]
			close := strings.IndexByte(addrPart, ')')
			if close == -1 {
				return nil, &InvalidArgumentError{Msg: "malformed DSN address, missing ')'"}
			}
			hostport = addrPart[open+1 : close]
		}
		if proto != "" && proto != "tcp" {
			return nil, &InvalidArgumentError{Msg: "only the tcp protocol is supported, got " + proto}
		}
		if hostport != "" {
			host, port, err := net.SplitHostPort(hostport)
			if err != nil {
				// no explicit port
				cfg.Host = hostport
			} else {
				cfg.Host = host
				p, err := strconv.Atoi(port)
				if err != nil {
					return nil, &InvalidArgumentError{Msg: "invalid port: " + port}
				}
				cfg.Port = p
			}
		}
	}

	dbname := rest
	var query string
	if q := strings.IndexByte(rest, '?'); q != -1 {
		dbname = rest[:q]
		query = rest[q+1:]
	}
	cfg.DBName = dbname

	for _, kv := range strings.Split(query, "&") {
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		switch k {
		case "collation":
			cfg.Collation = v
		case "parseTime":
			cfg.ParseTime = v == "true" || v == "1"
		case "multiStatements":
			cfg.MultiStatements = v == "true" || v == "1"
		case "clientFoundRows":
			cfg.ClientFoundRows = v == "true" || v == "1"
		case "interpolateParams":
			cfg.InterpolateParams = v == "true" || v == "1"
		case "allowPublicKeyRetrieval":
			cfg.AllowPublicKeyRetrieval = v == "true" || v == "1"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Connector is a reusable connection factory, mirroring
// database/sql/driver.Connector so the native driver and the
// database/sql adapter share one code path for building connection
// attributes and dialing.
type Connector struct {
	cfg                *Config
	encodedAttributes  string
}

// NewConnector builds a Connector from cfg. cfg is not retained mutably;
// callers may keep using their own *Config afterward.
func NewConnector(cfg *Config) (*Connector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Connector{cfg: cfg.Clone()}
	c.encodedAttributes = encodeConnectionAttributes(c.cfg)
	return c, nil
}

// Config returns the Connector's underlying configuration.
func (c *Connector) Config() *Config { return c.cfg }
