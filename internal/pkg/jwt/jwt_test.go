package jwt

import (
	"testing"
	"time"
)

func testConfig(secret string) Config {
	return Config{
		Secret:   secret,
		Issuer:   "resonate",
		Audience: "resonate-clients",
		TTL:      time.Hour,
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	m := NewManager(testConfig("secret"))

	token, err := m.Issue("acct-1", "device-a")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.AccountID != "acct-1" {
		t.Errorf("account = %q, want acct-1", claims.AccountID)
	}
	if claims.DeviceID != "device-a" {
		t.Errorf("device = %q, want device-a", claims.DeviceID)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewManager(testConfig("secret-a")).Issue("acct-1", "device-a")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := NewManager(testConfig("secret-b")).Verify(token); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	cfg := testConfig("secret")
	cfg.TTL = -time.Minute

	token, err := NewManager(cfg).Issue("acct-1", "device-a")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewManager(testConfig("secret")).Verify(token); err == nil {
		t.Fatal("expired token must be rejected")
	}
}
