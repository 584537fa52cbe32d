package utils

import (
	"strings"
	"testing"
)

func TestValidateRemoteName_Accepts(t *testing.T) {
	names := []string{
		"nginx",
		"my-service",
		"postgres_14",
		"app.service",
		"getty@tty1",
		"Redis-Cache.2",
	}
	for _, name := range names {
		if err := ValidateRemoteName(name); err != nil {
			t.Errorf("ValidateRemoteName(%q) = %v, want nil", name, err)
		}
	}
}

func TestValidateRemoteName_Rejects(t *testing.T) {
	names := []string{
		"",
		"   ",
		"rm -rf /",
		"svc;reboot",
		"svc`id`",
		"svc$(whoami)",
		"svc|cat",
		"-leading-dash",
		".hidden",
		strings.Repeat("a", 256),
	}
	for _, name := range names {
		if err := ValidateRemoteName(name); err == nil {
			t.Errorf("ValidateRemoteName(%q) = nil, want error", name)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  Nginx  ", "nginx"},
		{"REDIS", "redis"},
		{"app.service", "app.service"},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
