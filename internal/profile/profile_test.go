package profile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return path
}

func TestFileSource_LoadsAndDefaults(t *testing.T) {
	path := writeProfile(t, `
default_sca_approach: EMBEDDED
confirmation_code_check_by_engine: true
redirect_url_template: "https://bank.example/sca/{authorisation-id}?state={token}"
`)
	src := NewFileSource(path, time.Minute)

	p, err := src.Current(context.Background())
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if p.DefaultScaApproach != "EMBEDDED" {
		t.Fatalf("approach = %s", p.DefaultScaApproach)
	}
	if !p.ConfirmationCodeCheckByEngine {
		t.Fatal("confirmation mode should be local")
	}
	if p.RedirectTokenTTL != 5*time.Minute {
		t.Fatalf("redirect token ttl default = %s", p.RedirectTokenTTL)
	}
	if p.AuthorisationTTL != 24*time.Hour {
		t.Fatalf("authorisation ttl default = %s", p.AuthorisationTTL)
	}
}

func TestFileSource_RejectsUnknownApproach(t *testing.T) {
	path := writeProfile(t, "default_sca_approach: CARRIER_PIGEON\n")
	src := NewFileSource(path, time.Minute)

	if _, err := src.Current(context.Background()); err == nil {
		t.Fatal("expected error for unknown approach")
	}
}

func TestFileSource_CachesBetweenReads(t *testing.T) {
	path := writeProfile(t, "default_sca_approach: REDIRECT\n")
	src := NewFileSource(path, time.Minute)

	if _, err := src.Current(context.Background()); err != nil {
		t.Fatalf("first read: %v", err)
	}

	// El cache sigue sirviendo el snapshot aunque el archivo desaparezca.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	p, err := src.Current(context.Background())
	if err != nil {
		t.Fatalf("cached read: %v", err)
	}
	if p.DefaultScaApproach != "REDIRECT" {
		t.Fatalf("approach = %s", p.DefaultScaApproach)
	}
}

func TestStatic(t *testing.T) {
	src := Static{P: Profile{DefaultScaApproach: "DECOUPLED"}}
	p, err := src.Current(context.Background())
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if p.DefaultScaApproach != "DECOUPLED" {
		t.Fatalf("approach = %s", p.DefaultScaApproach)
	}
}
