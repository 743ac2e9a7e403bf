package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/dropDatabas3/mailmaint/internal/security/secretbox"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(writeYAML(t, "controlplane:\n  base_url: https://cp.local:8443\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.App.Env != "dev" {
		t.Fatalf("app.env default: %q", c.App.Env)
	}
	if c.Maintenance.PollInterval != "30s" || c.Maintenance.MaxPollAttempts != 0 {
		t.Fatalf("maintenance defaults: %+v", c.Maintenance)
	}
	if c.Maintenance.Requester != "Maintenance" {
		t.Fatalf("requester default: %q", c.Maintenance.Requester)
	}
	if c.Records.Kind != "none" {
		t.Fatalf("records.kind default: %q", c.Records.Kind)
	}
	if c.ControlPlane.Timeout != "30s" || c.ControlPlane.TokenTTL != "2m" {
		t.Fatalf("controlplane defaults: %+v", c.ControlPlane)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CP_BASE_URL", "https://other.local")
	t.Setenv("MAINT_POLL_INTERVAL", "5s")
	t.Setenv("MAINT_MAX_POLL_ATTEMPTS", "12")
	t.Setenv("RECORDS_KIND", "fs")
	t.Setenv("RECORDS_FS_DIR", "/var/lib/mailmaint")
	t.Setenv("RECORDS_ETCD_ENDPOINTS", "a:2379, b:2379")

	c, err := Load(writeYAML(t, "controlplane:\n  base_url: https://cp.local\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ControlPlane.BaseURL != "https://other.local" {
		t.Fatalf("env override lost: %q", c.ControlPlane.BaseURL)
	}
	if c.Maintenance.PollInterval != "5s" || c.Maintenance.MaxPollAttempts != 12 {
		t.Fatalf("maintenance overrides: %+v", c.Maintenance)
	}
	if c.Records.Kind != "fs" || c.Records.FS.Dir != "/var/lib/mailmaint" {
		t.Fatalf("records overrides: %+v", c.Records)
	}
	if len(c.Records.Etcd.Endpoints) != 2 || c.Records.Etcd.Endpoints[1] != "b:2379" {
		t.Fatalf("etcd endpoints CSV: %v", c.Records.Etcd.Endpoints)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	if _, err := Load(writeYAML(t, "maintenance:\n  poll_interval: pronto\n")); err == nil {
		t.Fatal("bad duration should fail")
	}
	if _, err := Load(writeYAML(t, "records:\n  kind: mongodb\n")); err == nil {
		t.Fatal("unknown records kind should fail")
	}
	if _, err := Load(writeYAML(t, "smtp:\n  tls: maybe\n")); err == nil {
		t.Fatal("bad smtp tls mode should fail")
	}
}

func TestControlPlaneSecret_DecryptsEnc(t *testing.T) {
	secretbox.UnsafeResetForTests()
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i * 3)
	}
	t.Setenv("SECRETBOX_MASTER_KEY", base64.StdEncoding.EncodeToString(raw))

	enc, err := secretbox.Encrypt("hs256-shared")
	if err != nil {
		t.Fatal(err)
	}
	c, err := Load(writeYAML(t, "controlplane:\n  base_url: https://cp.local\n  shared_secret_enc: \""+enc+"\"\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := c.ControlPlaneSecret()
	if err != nil {
		t.Fatalf("ControlPlaneSecret: %v", err)
	}
	if got != "hs256-shared" {
		t.Fatalf("secret mismatch: %q", got)
	}

	// Plano gana sobre cifrado.
	c.ControlPlane.SharedSecret = "plain"
	if got, _ = c.ControlPlaneSecret(); got != "plain" {
		t.Fatalf("plain should win: %q", got)
	}
}
