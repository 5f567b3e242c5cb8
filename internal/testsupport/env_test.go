package testsupport

import "testing"

func TestLoadPostgresConfigFromEnv(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "localhost")
	t.Setenv("POSTGRES_USER", "user")
	t.Setenv("POSTGRES_PASSWORD", "pass")
	t.Setenv("POSTGRES_DB", "db")
	t.Setenv("POSTGRES_PORT", "5543")
	t.Setenv("POSTGRES_SSL_MODE", "disable")

	cfg := LoadPostgresConfigFromEnv(t)

	if cfg.Host != "localhost" || cfg.Port != 5543 {
		t.Fatalf("unexpected postgres config %+v", cfg)
	}

	if cfg.User != "user" || cfg.Database != "db" || cfg.SSLMode != "disable" {
		t.Fatalf("unexpected postgres config %+v", cfg)
	}
}

func TestLoadRedisConfigFromEnv(t *testing.T) {
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")

	cfg := LoadRedisConfigFromEnv(t)

	if cfg.Host != "redis" || cfg.Port != 6380 || cfg.DB != 2 {
		t.Fatalf("unexpected redis config %+v", cfg)
	}
}
