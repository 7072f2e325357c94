package config

import (
	"errors"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "shulebook_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MongoDB.URI == "" || cfg.Redis.Host == "" {
		t.Fatalf("unexpected empty config values: %+v", cfg)
	}
	if cfg.Sync.Workers <= 0 || cfg.Sync.MaxBatchOps <= 0 {
		t.Fatalf("expected sync defaults to be set: %+v", cfg.Sync)
	}
}

func TestCheckCredentials(t *testing.T) {
	cfg := &Config{}
	err := cfg.CheckCredentials()
	var credErr *CredentialError
	if !errors.As(err, &credErr) || credErr.Key != "MONGODB_URI" {
		t.Fatalf("expected CredentialError for MONGODB_URI, got %v", err)
	}

	cfg.MongoDB.URI = "mongodb://localhost:27017"
	cfg.Keycloak.URL = "http://localhost:8080"
	err = cfg.CheckCredentials()
	if !errors.As(err, &credErr) || credErr.Key != "KEYCLOAK_CLIENT_SECRET" {
		t.Fatalf("expected CredentialError for KEYCLOAK_CLIENT_SECRET, got %v", err)
	}

	cfg.Keycloak.ClientSecret = "s3cr3t"
	if err := cfg.CheckCredentials(); err != nil {
		t.Fatalf("expected credentials to be accepted, got %v", err)
	}
}
