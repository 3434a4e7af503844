package utils

import (
	"testing"
	"time"
)

func TestPostgresPoolConfig_Defaults(t *testing.T) {
	got := PostgresPoolConfig{}.withDefaults()
	if got.MaxOpenConns != 25 || got.MaxIdleConns != 25 {
		t.Fatalf("unexpected pool defaults: %+v", got)
	}
	if got.ConnMaxLifetime != 30*time.Minute || got.ConnMaxIdleTime != 5*time.Minute {
		t.Fatalf("unexpected lifetime defaults: %+v", got)
	}
	if got.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected ping timeout: %v", got.PingTimeout)
	}
}

func TestPostgresPoolConfig_KeepsExplicitValues(t *testing.T) {
	in := PostgresPoolConfig{MaxOpenConns: 5, PingTimeout: time.Second}
	got := in.withDefaults()
	if got.MaxOpenConns != 5 {
		t.Fatalf("MaxOpenConns = %d, want 5", got.MaxOpenConns)
	}
	if got.PingTimeout != time.Second {
		t.Fatalf("PingTimeout = %v, want 1s", got.PingTimeout)
	}
}
