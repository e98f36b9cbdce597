package whisperer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhookLifecycle(t *testing.T) {
	type call struct {
		method string
		query  string
		body   map[string]string
	}
	var calls []call

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/whisper-manage-callback" {
			t.Errorf("path = %q", r.URL.Path)
		}
		rec := call{method: r.Method, query: r.URL.Query().Get("webhook_name")}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("content type = %q", r.Header.Get("Content-Type"))
			}
			if err := json.Unmarshal(raw, &rec.body); err != nil {
				t.Errorf("body: %v", err)
			}
		}
		calls = append(calls, rec)
		json.NewEncoder(w).Encode(map[string]any{"status": "ok", "webhook_name": "wb1"})
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	ctx := context.Background()

	if _, err := c.RegisterWebhook(ctx, "https://hooks.example.com/done", "tok-1", "wb1"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.UpdateWebhookDetails(ctx, "https://hooks.example.com/v2", "tok-2", "wb1"); err != nil {
		t.Fatal(err)
	}
	details, err := c.GetWebhookDetails(ctx, "wb1")
	if err != nil {
		t.Fatal(err)
	}
	if details["webhook_name"] != "wb1" {
		t.Errorf("details = %v", details)
	}
	if _, err := c.DeleteWebhook(ctx, "wb1"); err != nil {
		t.Fatal(err)
	}

	want := []call{
		{method: http.MethodPost, body: map[string]string{"url": "https://hooks.example.com/done", "auth_token": "tok-1", "webhook_name": "wb1"}},
		{method: http.MethodPut, body: map[string]string{"url": "https://hooks.example.com/v2", "auth_token": "tok-2", "webhook_name": "wb1"}},
		{method: http.MethodGet, query: "wb1"},
		{method: http.MethodDelete, query: "wb1"},
	}
	if len(calls) != len(want) {
		t.Fatalf("calls = %d, want %d", len(calls), len(want))
	}
	for i, w := range want {
		got := calls[i]
		if got.method != w.method || got.query != w.query {
			t.Errorf("call %d = %s %q, want %s %q", i, got.method, got.query, w.method, w.query)
		}
		for k, v := range w.body {
			if got.body[k] != v {
				t.Errorf("call %d body[%s] = %q, want %q", i, k, got.body[k], v)
			}
		}
	}
}

func TestRegisterWebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"message": "webhook name already exists"})
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	_, err := c.RegisterWebhook(context.Background(), "https://hooks.example.com", "t", "dup")
	ce, ok := err.(*ClientError)
	if !ok {
		t.Fatalf("err = %v", err)
	}
	if ce.StatusCode != 400 || ce.Message != "webhook name already exists" {
		t.Errorf("error payload = %+v", ce)
	}
}
