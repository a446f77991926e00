package config

import (
	"strings"
	"testing"
)

// ── ParseTunnelSpec ──────────────────────────────────────────────────

func TestParseTunnelSpec(t *testing.T) {
	tests := []struct {
		input    string
		wantUser string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"user@host", "user", "host", 22, false},
		{"user@host:2222", "user", "host", 2222, false},
		{"host", "", "host", 22, false},
		{"host:22", "", "host", 22, false},
		{"admin@bastion.example.com:443", "admin", "bastion.example.com", 443, false},
		{"user@host:0", "", "", 0, true},
		{"user@host:99999", "", "", 0, true},
		{"", "", "", 0, true},
		{"a@b@c", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			user, host, port, err := ParseTunnelSpec(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTunnelSpec(%q) error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if user != tt.wantUser || host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got (%q, %q, %d), want (%q, %q, %d)",
					user, host, port, tt.wantUser, tt.wantHost, tt.wantPort)
			}
		})
	}
}

// ── Defaults ─────────────────────────────────────────────────────────

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Host != "127.0.0.1" || cfg.Port != 9001 {
		t.Errorf("listener = %s:%d, want 127.0.0.1:9001", cfg.Host, cfg.Port)
	}
	if cfg.PollInterval != 1024 {
		t.Errorf("PollInterval = %d, want 1024", cfg.PollInterval)
	}
	if cfg.SingleStep || cfg.GuardRail {
		t.Error("single-step and guard rail must default off")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestGatewayPort(t *testing.T) {
	cfg := Default()
	if cfg.GatewayPort() != cfg.Port {
		t.Errorf("GatewayPort = %d, want the listener port", cfg.GatewayPort())
	}
	cfg.RemotePort = 2331
	if cfg.GatewayPort() != 2331 {
		t.Errorf("GatewayPort = %d, want 2331", cfg.GatewayPort())
	}
}

func TestApplyVia(t *testing.T) {
	cfg := Default()
	cfg.Via = "dev@gw:2200"
	if err := cfg.ApplyVia(); err != nil {
		t.Fatal(err)
	}
	if !cfg.ViaEnabled() || cfg.ViaUser != "dev" || cfg.ViaHost != "gw" || cfg.ViaPort != 2200 {
		t.Errorf("got %+v", cfg)
	}

	cfg.Via = ""
	if err := cfg.ApplyVia(); err != nil {
		t.Fatal(err)
	}
	if cfg.ViaEnabled() {
		t.Error("clearing Via should disable the gateway")
	}
}

func TestString(t *testing.T) {
	cfg := Default()
	cfg.Budget = 0
	cfg.Via = "gw"
	cfg.ApplyVia() //nolint:errcheck

	s := cfg.String()
	for _, want := range []string{"arch:          x86_64", "budget:        unlimited", "listen:        127.0.0.1:9001", "via:"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary lacks %q:\n%s", want, s)
		}
	}
}
