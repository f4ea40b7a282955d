package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithAdminGate(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), WithAdminGate("clinic-secret"))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/payments", nil)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without password, got %d", rw.Code)
	}

	reqBad := httptest.NewRequest(http.MethodGet, "http://example.com/payments", nil)
	reqBad.Header.Set(AdminPasswordHeader, "wrong")
	rwBad := httptest.NewRecorder()
	h.ServeHTTP(rwBad, reqBad)
	if rwBad.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong password, got %d", rwBad.Code)
	}

	reqOK := httptest.NewRequest(http.MethodGet, "http://example.com/payments", nil)
	reqOK.Header.Set(AdminPasswordHeader, "clinic-secret")
	rwOK := httptest.NewRecorder()
	h.ServeHTTP(rwOK, reqOK)
	if rwOK.Code != http.StatusOK {
		t.Fatalf("expected 200 with correct password, got %d", rwOK.Code)
	}
}

func TestWithAdminGateUnconfigured(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), WithAdminGate(""))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/payments", nil)
	req.Header.Set(AdminPasswordHeader, "")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusForbidden {
		t.Fatalf("expected 403 when gate is unconfigured, got %d", rw.Code)
	}
}
