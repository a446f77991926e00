package tunnel

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh"
)

func TestBuildAuthMethods_ExplicitKey(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "id_test")
	writeTestKey(t, keyPath, nil)

	methods, err := BuildAuthMethods(&SSHConfig{KeyPath: keyPath})
	if err != nil {
		t.Fatalf("BuildAuthMethods: %v", err)
	}
	if len(methods) != 1 {
		t.Fatalf("got %d methods, want 1", len(methods))
	}
}

func TestBuildAuthMethods_EncryptedKeyPrompts(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "id_test")
	writeTestKey(t, keyPath, []byte("s3cret"))

	var asked []string
	cfg := &SSHConfig{
		KeyPath: keyPath,
		Prompt: func(label string) ([]byte, error) {
			asked = append(asked, label)
			return []byte("s3cret"), nil
		},
	}
	if _, err := BuildAuthMethods(cfg); err != nil {
		t.Fatalf("BuildAuthMethods: %v", err)
	}
	if len(asked) != 1 {
		t.Errorf("prompted %d times, want 1", len(asked))
	}
}

func TestBuildAuthMethods_WrongPassphrase(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "id_test")
	writeTestKey(t, keyPath, []byte("s3cret"))

	cfg := &SSHConfig{
		KeyPath: keyPath,
		Prompt:  func(string) ([]byte, error) { return []byte("nope"), nil },
	}
	if _, err := BuildAuthMethods(cfg); err == nil {
		t.Fatal("expected a decryption error")
	}
}

func TestBuildAuthMethods_PromptFailure(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "id_test")
	writeTestKey(t, keyPath, []byte("s3cret"))

	errNoTTY := errors.New("no tty")
	cfg := &SSHConfig{
		KeyPath: keyPath,
		Prompt:  func(string) ([]byte, error) { return nil, errNoTTY },
	}
	if _, err := BuildAuthMethods(cfg); !errors.Is(err, errNoTTY) {
		t.Fatalf("err = %v, want the prompt error", err)
	}
}

func TestBuildAuthMethods_PasswordIsLazy(t *testing.T) {
	cfg := &SSHConfig{
		PromptPass: true,
		Prompt: func(string) ([]byte, error) {
			t.Error("password must not be asked before the gateway wants it")
			return nil, nil
		},
	}
	methods, err := BuildAuthMethods(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(methods) != 2 {
		t.Errorf("got %d methods, want password and keyboard-interactive", len(methods))
	}
}

func TestBuildAuthMethods_MissingKey(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	if _, err := BuildAuthMethods(&SSHConfig{KeyPath: "/nonexistent/key"}); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestBuildAuthMethods_AgentWithoutSocket(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	if _, err := BuildAuthMethods(&SSHConfig{UseAgent: true}); err == nil {
		t.Fatal("expected error when SSH_AUTH_SOCK is unset")
	}
}

func TestHostKeyCallback(t *testing.T) {
	t.Run("insecure", func(t *testing.T) {
		cb, err := hostKeyCallback(&SSHConfig{})
		if err != nil || cb == nil {
			t.Fatalf("cb = %v, err = %v", cb, err)
		}
	})

	t.Run("known hosts file", func(t *testing.T) {
		kh := filepath.Join(t.TempDir(), "known_hosts")
		if err := os.WriteFile(kh, nil, 0600); err != nil {
			t.Fatal(err)
		}
		cb, err := hostKeyCallback(&SSHConfig{StrictHostKey: true, KnownHosts: kh})
		if err != nil || cb == nil {
			t.Fatalf("cb = %v, err = %v", cb, err)
		}
	})

	t.Run("missing known hosts file", func(t *testing.T) {
		_, err := hostKeyCallback(&SSHConfig{StrictHostKey: true, KnownHosts: "/nonexistent/known_hosts"})
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

// ── helpers ──────────────────────────────────────────────────────────

// writeTestKey writes a fresh ed25519 key in OpenSSH format, encrypted
// when passphrase is non-nil.
func writeTestKey(t *testing.T, path string, passphrase []byte) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	var block *pem.Block
	if passphrase == nil {
		block, err = ssh.MarshalPrivateKey(priv, "gdbstub-test")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "gdbstub-test", passphrase)
	}
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatal(err)
	}
}
