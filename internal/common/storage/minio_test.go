package storage

import "testing"

func TestNewMinIOStorageValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  MinIOConfig
		ok   bool
	}{
		{name: "missing endpoint", cfg: MinIOConfig{AccessKey: "a", SecretKey: "s"}},
		{name: "missing access key", cfg: MinIOConfig{Endpoint: "localhost:9000", SecretKey: "s"}},
		{name: "missing secret key", cfg: MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a"}},
		{name: "valid", cfg: MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}, ok: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewMinIOStorage(tc.cfg)
			if tc.ok && (err != nil || s == nil) {
				t.Fatalf("expected storage, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
