package password

import (
	"strings"
	"testing"
)

func fastHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	return h
}

func TestNewHasherValidation(t *testing.T) {
	base := DefaultConfig()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"low memory", func(c *Config) { c.Memory = 1024 }},
		{"zero time", func(c *Config) { c.Time = 0 }},
		{"zero parallelism", func(c *Config) { c.Parallelism = 0 }},
		{"short salt", func(c *Config) { c.SaltLength = 8 }},
		{"short key", func(c *Config) { c.KeyLength = 8 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			if _, err := NewHasher(cfg); err == nil {
				t.Fatal("expected config error")
			}
		})
	}

	if _, err := NewHasher(base); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
}

func TestHashVerifyRoundTrip(t *testing.T) {
	h := fastHasher(t)

	encoded, err := h.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("unexpected PHC prefix: %q", encoded)
	}

	ok, err := h.Verify("correct horse battery", encoded)
	if err != nil || !ok {
		t.Fatalf("Verify = %v, %v; want true, nil", ok, err)
	}

	ok, err = h.Verify("wrong password!", encoded)
	if err != nil {
		t.Fatalf("Verify errored on mismatch: %v", err)
	}
	if ok {
		t.Fatal("wrong password must not verify")
	}
}

func TestHashRejectsShortPassword(t *testing.T) {
	h := fastHasher(t)
	if _, err := h.Hash("short"); err == nil {
		t.Fatal("expected error for password under 10 bytes")
	}
}

func TestHashSaltsAreUnique(t *testing.T) {
	h := fastHasher(t)

	a, err := h.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	b, err := h.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	h := fastHasher(t)

	cases := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"wrong algorithm", "$scrypt$v=19$m=8192,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA==$AAAAAAAAAAAAAAAAAAAAAA=="},
		{"missing version", "$argon2id$m=8192,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA==$AAAAAAAAAAAAAAAAAAAAAA==$x"},
		{"bad salt b64", "$argon2id$v=19$m=8192,t=1,p=1$!!!$AAAAAAAAAAAAAAAAAAAAAA=="},
		{"tiny memory", "$argon2id$v=19$m=16,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA==$AAAAAAAAAAAAAAAAAAAAAA=="},
		{"extra field", "$argon2id$v=19$m=8192,t=1,p=1,x=1$AAAAAAAAAAAAAAAAAAAAAA==$AAAAAAAAAAAAAAAAAAAAAA=="},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.Verify("whatever password", tc.encoded); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}
