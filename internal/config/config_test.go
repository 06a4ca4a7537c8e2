package config

import "testing"

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Postgres.Host != "localhost" {
		t.Fatalf("expected default pg-host localhost, got %q", cfg.Postgres.Host)
	}
	if cfg.Timezone == nil || cfg.Timezone.String() != "Australia/Sydney" {
		t.Fatalf("expected default timezone Australia/Sydney, got %v", cfg.Timezone)
	}
	if cfg.Thresholds.TDNewGrounded != DefaultThresholds().TDNewGrounded {
		t.Fatal("expected default thresholds to be applied")
	}
}

func TestLoadOverridesFromFlags(t *testing.T) {
	cfg, err := Load([]string{"-pg-host=db.internal", "-http-addr=:9000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Postgres.Host != "db.internal" {
		t.Fatalf("expected overridden pg-host, got %q", cfg.Postgres.Host)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Fatalf("expected overridden http-addr, got %q", cfg.HTTPAddr)
	}
}

func TestStoreConfigTranslation(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sc := cfg.StoreConfig()
	if sc.Postgres.Host != cfg.Postgres.Host {
		t.Fatal("expected StoreConfig to carry through postgres host")
	}
	if sc.ClickHouse.Database != cfg.ClickHouse.Database {
		t.Fatal("expected StoreConfig to carry through clickhouse database")
	}
}
