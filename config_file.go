package mysql

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML-on-disk shape of a Config, grounded on
// JeelKantaria-db-bouncer's config.Config: a flat struct loaded with
// gopkg.in/yaml.v3 and ${VAR_NAME} environment substitution so
// passwords don't need to be committed in plaintext.
type FileConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`

	Collation         string        `yaml:"collation"`
	MaxAllowedPacket  int           `yaml:"max_allowed_packet"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	DialTimeout       time.Duration `yaml:"dial_timeout"`

	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`
	TLSCA   string `yaml:"tls_ca"`

	ParseTime          bool `yaml:"parse_time"`
	MultiStatements    bool `yaml:"multi_statements"`
	InterpolateParams  bool `yaml:"interpolate_params"`
	UseServerPrepStmts bool `yaml:"use_server_prep_stmts"`
	UseCursorFetch     bool `yaml:"use_cursor_fetch"`
	RejectReadOnly     bool `yaml:"reject_read_only"`
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func substituteEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		if val, ok := os.LookupEnv(string(varName)); ok {
			return []byte(val)
		}
		return match
	})
}

// LoadConfigFile reads and parses a YAML connection config file,
// substituting ${VAR_NAME} references against the process environment
// before unmarshaling.
func LoadConfigFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mysql: reading config file: %w", err)
	}
	data = substituteEnvVars(data)

	fc := &FileConfig{}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("mysql: parsing config file: %w", err)
	}
	return fc, nil
}

// ToConfig converts fc into a driver Config, applying NewConfig's
// defaults for anything the file left zero-valued.
func (fc *FileConfig) ToConfig() (*Config, error) {
	opts := []Option{
		WithHost(fc.Host),
		WithUser(fc.User),
		WithDatabase(fc.Database),
	}
	if fc.Password != "" {
		opts = append(opts, WithPassword(fc.Password))
	}
	if fc.Port != 0 {
		opts = append(opts, WithPort(fc.Port))
	}
	if fc.Collation != "" {
		opts = append(opts, WithCollation(fc.Collation))
	}
	if fc.MaxAllowedPacket != 0 {
		opts = append(opts, WithMaxAllowedPacket(fc.MaxAllowedPacket))
	}
	if fc.ReadTimeout != 0 {
		opts = append(opts, WithReadTimeout(fc.ReadTimeout))
	}
	if fc.WriteTimeout != 0 {
		opts = append(opts, WithWriteTimeout(fc.WriteTimeout))
	}
	if fc.DialTimeout != 0 {
		opts = append(opts, WithDialTimeout(fc.DialTimeout))
	}
	opts = append(opts,
		WithParseTime(fc.ParseTime),
		WithMultiStatements(fc.MultiStatements),
		WithInterpolateParams(fc.InterpolateParams),
		WithUseServerPrepStmts(fc.UseServerPrepStmts),
		WithUseCursorFetch(fc.UseCursorFetch),
		WithRejectReadOnly(fc.RejectReadOnly),
	)

	if fc.TLSCert != "" && fc.TLSKey != "" {
		tlsCfg, err := buildTLSConfig(fc)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithSSLMode(SSLTrusted), WithTLSConfig(tlsCfg))
	}

	cfg := NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildTLSConfig(fc *FileConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(fc.TLSCert, fc.TLSKey)
	if err != nil {
		return nil, fmt.Errorf("mysql: loading TLS client cert: %w", err)
	}
	tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}}

	if fc.TLSCA != "" {
		pem, err := os.ReadFile(fc.TLSCA)
		if err != nil {
			return nil, fmt.Errorf("mysql: reading TLS CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, &InvalidArgumentError{Msg: "tls_ca contains no usable certificates"}
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}
