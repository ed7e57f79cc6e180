package main

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestProbeURL(t *testing.T) {
	if got := probeURL(env(nil)); got != "http://127.0.0.1:8080/health" {
		t.Fatalf("default url=%s", got)
	}
	if got := probeURL(env(map[string]string{"PORT": "9001"})); got != "http://127.0.0.1:9001/health" {
		t.Fatalf("port url=%s", got)
	}
}

func TestRun(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer ts.Close()

	if code := run(env(nil), []string{ts.URL + "/health"}); code != 0 {
		t.Fatalf("healthy exit=%d", code)
	}
	status.Store(http.StatusServiceUnavailable)
	if code := run(env(nil), []string{ts.URL + "/health"}); code != 1 {
		t.Fatalf("unhealthy exit=%d", code)
	}
	if code := run(env(nil), []string{"://bad"}); code != 2 {
		t.Fatalf("bad url exit=%d", code)
	}
}
