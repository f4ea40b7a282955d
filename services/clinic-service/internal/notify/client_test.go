package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientSend(t *testing.T) {
	var got Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.Send(context.Background(), Notification{
		Email:       "juan@example.com",
		Status:      "confirmed",
		PatientName: "Juan Dela Cruz",
		Date:        "2024-03-15",
		Time:        "09:30",
		Notes:       "No additional notes.",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.Email != "juan@example.com" || got.Status != "confirmed" || got.Date != "2024-03-15" {
		t.Errorf("payload = %+v", got)
	}
}

func TestClientSendNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL).Send(context.Background(), Notification{Email: "x@y"}); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestClientSendUnconfigured(t *testing.T) {
	if err := NewClient("").Send(context.Background(), Notification{}); err == nil {
		t.Fatal("expected error with no endpoint configured")
	}
}
