package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewRegistry(t *testing.T) {
	reg, m := NewRegistry()
	if reg == nil || m == nil {
		t.Fatal("expected registry and metrics")
	}

	m.RecordAPICall("GET", "/api/auth/me/", 200, time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected gathered metric families")
	}
}

func TestWriteTextfile(t *testing.T) {
	reg, m := NewRegistry()
	m.RecordAPICall("POST", "/api/auth/login/", 200, 50*time.Millisecond)

	path := filepath.Join(t.TempDir(), "nested", "botctl.prom")
	if err := WriteTextfile(path, reg); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `botctl_api_requests_total{method="POST",route="/api/auth/login/",status="200"} 1`) {
		t.Errorf("unexpected textfile contents:\n%s", data)
	}
}

func TestWriteTextfile_EmptyPathIsNoop(t *testing.T) {
	reg, _ := NewRegistry()
	if err := WriteTextfile("", reg); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}
