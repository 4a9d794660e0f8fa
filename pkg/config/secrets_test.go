package config

import (
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	dir := t.TempDir()
	secrets := map[string]string{
		SecretGitHubToken: "ghp_testtoken",
		SecretOneAPIKey:   "one-api-key",
	}

	if err := EncryptSecretsFile(dir, "correct horse", secrets); err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if !SecretsFileExists(dir) {
		t.Fatal("secrets file should exist after encryption")
	}

	got, err := DecryptSecretsFile(dir, "correct horse")
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if got[SecretGitHubToken] != "ghp_testtoken" || got[SecretOneAPIKey] != "one-api-key" {
		t.Errorf("round trip mismatch: %v", got)
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	dir := t.TempDir()
	if err := EncryptSecretsFile(dir, "right", map[string]string{"A": "1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := DecryptSecretsFile(dir, "wrong"); err == nil {
		t.Fatal("expected decryption failure with wrong password")
	}
}

func TestGetSecretPrecedence(t *testing.T) {
	t.Setenv("FELLOWSHIP_TEST_SECRET", "from-env")

	SetDecryptedSecrets(map[string]string{"FELLOWSHIP_TEST_SECRET": "from-file"})
	defer SetDecryptedSecrets(nil)

	got, err := GetSecret("FELLOWSHIP_TEST_SECRET")
	if err != nil {
		t.Fatalf("GetSecret failed: %v", err)
	}
	if got != "from-file" {
		t.Errorf("secret = %q, want decrypted file to win", got)
	}

	SetDecryptedSecrets(nil)
	got, err = GetSecret("FELLOWSHIP_TEST_SECRET")
	if err != nil {
		t.Fatalf("GetSecret failed: %v", err)
	}
	if got != "from-env" {
		t.Errorf("secret = %q, want env fallback", got)
	}
}

func TestGetSecretMissing(t *testing.T) {
	SetDecryptedSecrets(nil)
	if _, err := GetSecret("FELLOWSHIP_DEFINITELY_MISSING"); err == nil {
		t.Fatal("expected error for missing secret")
	}
}
