package mysql

import "testing"

func TestParseDSN(t *testing.T) {
	cfg, err := ParseDSN("user:pass@tcp(db.example.com:3307)/mydb?parseTime=true&collation=utf8mb4_unicode_ci")
	if err != nil {
		t.Fatalf("ParseDSN: %v", err)
	}
	if cfg.User != "user" || cfg.Password != "pass" || !cfg.HasPass {
		t.Errorf("unexpected user/password: %+v", cfg)
	}
	if cfg.Host != "db.example.com" || cfg.Port != 3307 {
		t.Errorf("unexpected host/port: %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.DBName != "mydb" {
		t.Errorf("unexpected dbname: %s", cfg.DBName)
	}
	if !cfg.ParseTime {
		t.Errorf("expected ParseTime=true")
	}
	if cfg.Collation != "utf8mb4_unicode_ci" {
		t.Errorf("unexpected collation: %s", cfg.Collation)
	}
}

func TestParseDSNDefaults(t *testing.T) {
	cfg, err := ParseDSN("root@/test")
	if err != nil {
		t.Fatalf("ParseDSN: %v", err)
	}
	if cfg.Host != "127.0.0.1" || cfg.Port != 3306 {
		t.Errorf("unexpected default host/port: %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.HasPass {
		t.Errorf("expected no password")
	}
	if cfg.DBName != "test" {
		t.Errorf("unexpected dbname: %s", cfg.DBName)
	}
}

func TestParseDSNMissingSlash(t *testing.T) {
	if _, err := ParseDSN("root@tcp(127.0.0.1:3306)"); err == nil {
		t.Fatal("expected error for DSN without '/'")
	}
}

func TestParseDSNRejectsNonTCP(t *testing.T) {
	if _, err := ParseDSN("root@unix(/tmp/mysql.sock)/test"); err == nil {
		t.Fatal("expected error for non-tcp protocol")
	}
}

func TestFormatDSNRoundTrip(t *testing.T) {
	cfg := NewConfig(WithUser("root"), WithPassword("secret"), WithHost("localhost"),
		WithPort(3306), WithDatabase("app"), WithParseTime(true))
	dsn := cfg.FormatDSN()

	parsed, err := ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN(%q): %v", dsn, err)
	}
	if parsed.User != "root" || parsed.Password != "secret" || parsed.Host != "localhost" ||
		parsed.Port != 3306 || parsed.DBName != "app" || !parsed.ParseTime {
		t.Errorf("round trip mismatch: %+v", parsed)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := NewConfig(WithHost(""))
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty host")
	}

	cfg = NewConfig(WithPort(-1))
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative port")
	}

	cfg = NewConfig(WithMaxAllowedPacket(1))
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for too-small maxAllowedPacket")
	}
}

func TestConfigWithIsImmutable(t *testing.T) {
	base := NewConfig(WithHost("a"))
	derived := base.With(WithHost("b"))
	if base.Host != "a" {
		t.Errorf("base mutated: %s", base.Host)
	}
	if derived.Host != "b" {
		t.Errorf("derived.Host = %s, want b", derived.Host)
	}
}
