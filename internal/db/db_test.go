package db

import (
	"context"
	"errors"
	"testing"

	"eventarb/internal/config"
)

func TestOpen_EmptyDSNDisabled(t *testing.T) {
	conn, err := Open(config.DBConfig{DSN: "  "})
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("err=%v want ErrDisabled", err)
	}
	if conn != nil {
		t.Fatalf("expected nil connection")
	}
}

func TestPingAndClose_NilIsNoop(t *testing.T) {
	if err := Ping(context.Background(), nil); err != nil {
		t.Fatalf("Ping(nil)=%v", err)
	}
	if err := Close(nil); err != nil {
		t.Fatalf("Close(nil)=%v", err)
	}
	if err := SetTimezone(nil, "UTC"); err != nil {
		t.Fatalf("SetTimezone(nil)=%v", err)
	}
}
