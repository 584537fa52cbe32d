package api

import (
	"net/http"
	"strings"
	"testing"
)

func jsonRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	r, err := http.NewRequest(http.MethodPost, "/api/providers", strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestDecodeJSON_ValidInput(t *testing.T) {
	r := jsonRequest(t, `{"name":"prod-vm","type":"vm","port":22}`)

	var dst struct {
		Name string `json:"name"`
		Type string `json:"type"`
		Port int    `json:"port"`
	}
	if err := DecodeJSON(r, &dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst.Name != "prod-vm" || dst.Type != "vm" || dst.Port != 22 {
		t.Errorf("decoded = %+v, want prod-vm/vm/22", dst)
	}
}

func TestDecodeJSON_MissingBody(t *testing.T) {
	nilBody, _ := http.NewRequest(http.MethodPost, "/api/providers", nil)

	for name, r := range map[string]*http.Request{
		"nil body":   nilBody,
		"empty body": jsonRequest(t, ""),
	} {
		t.Run(name, func(t *testing.T) {
			var dst struct{}
			err := DecodeJSON(r, &dst)
			if err == nil {
				t.Fatal("expected an error")
			}
			if err.Error() != "request body is empty" {
				t.Errorf("error = %q, want %q", err.Error(), "request body is empty")
			}
		})
	}
}

func TestDecodeJSON_ErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed JSON", `{invalid}`, "malformed JSON"},
		{"type mismatch", `{"port":"twenty-two"}`, "invalid value"},
		{"unknown field", `{"name":"prod-vm","hostname":"leftover"}`, "unknown field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst struct {
				Name string `json:"name"`
				Port int    `json:"port"`
			}
			err := DecodeJSON(jsonRequest(t, tt.body), &dst)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestDecodeJSON_OversizedBody(t *testing.T) {
	huge := `{"kubeconfig":"` + strings.Repeat("x", MaxBodySize+1) + `"}`

	var dst struct {
		Kubeconfig string `json:"kubeconfig"`
	}
	err := DecodeJSON(jsonRequest(t, huge), &dst)
	if err == nil {
		t.Fatal("expected an error for an oversized body")
	}
	if !strings.Contains(err.Error(), "exceeds maximum size") {
		t.Errorf("error = %q, want it to mention the size limit", err.Error())
	}
}

func TestDecodeJSON_BodyAtLimit(t *testing.T) {
	// A body of exactly MaxBodySize must still decode
	padding := MaxBodySize - len(`{"kubeconfig":""}`)
	body := `{"kubeconfig":"` + strings.Repeat("x", padding) + `"}`
	if len(body) != MaxBodySize {
		t.Fatalf("fixture is %d bytes, want %d", len(body), MaxBodySize)
	}

	var dst struct {
		Kubeconfig string `json:"kubeconfig"`
	}
	if err := DecodeJSON(jsonRequest(t, body), &dst); err != nil {
		t.Fatalf("body at the limit should decode: %v", err)
	}
}
