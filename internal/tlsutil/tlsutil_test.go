package tlsutil

import (
	"crypto/tls"
	"net/http"
	"testing"
	"time"
)

func TestDefaultTLSConfig(t *testing.T) {
	cfg := DefaultTLSConfig()
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %d, want %d", cfg.MinVersion, tls.VersionTLS12)
	}
	for _, cs := range cfg.CipherSuites {
		switch cs {
		case tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305:
		default:
			t.Errorf("unexpected non-AEAD cipher suite: %d", cs)
		}
	}
}

func TestSecure(t *testing.T) {
	tests := map[string]bool{
		"wss://example.com/v1/stream": true,
		"ws://localhost:8080/v1/stream": false,
		"https://example.com/health":  true,
		"http://localhost:8080":       false,
		"rediss://cache:6380":         true,
		"::not a url":                 false,
	}
	for raw, want := range tests {
		if got := Secure(raw); got != want {
			t.Errorf("Secure(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestHTTPClient(t *testing.T) {
	c := HTTPClient("wss://example.com/v1/stream", 0)
	if c.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0", c.Timeout)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatal("expected *http.Transport")
	}
	if tr.TLSClientConfig == nil || tr.TLSClientConfig.MinVersion != tls.VersionTLS12 {
		t.Error("secure endpoint should use the hardened TLS config")
	}

	plain := HTTPClient("http://localhost:8080", 5*time.Second)
	if plain.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", plain.Timeout)
	}
	if plain.Transport.(*http.Transport).TLSClientConfig != nil {
		t.Error("plain endpoint should not carry TLS settings")
	}
}
