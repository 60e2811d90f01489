package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zhiliushi/pantry/internal/queue"
	"github.com/zhiliushi/pantry/internal/remote"
)

func TestLookupHandlerServesProduct(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"product": map[string]any{
				"barcode": "012345678905", "product_name": "Oat Milk", "found": true,
			},
		})
	}))
	defer server.Close()

	api := remote.NewAPIClient(server.URL, "", time.Second)
	offline := queue.New(nil)
	handler := lookupHandler(api, alwaysOnlineProber(), offline)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lookup?barcode=012345678905", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var product remote.Product
	if err := json.NewDecoder(rec.Body).Decode(&product); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !product.Found || product.Name != "Oat Milk" {
		t.Errorf("product = %+v", product)
	}
	if offline.Len() != 0 {
		t.Errorf("queue depth = %d after a served lookup, want 0", offline.Len())
	}
}

func TestLookupHandlerQueuesWhenOffline(t *testing.T) {
	// Unroutable server, no fallback: the lookup itself must fail.
	api := remote.NewAPIClient("http://127.0.0.1:1", "", time.Second)
	prober := remote.ProberFunc(func(context.Context) bool { return false })
	offline := queue.New(nil)
	handler := lookupHandler(api, prober, offline)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lookup?barcode=555", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "queued" {
		t.Errorf("status field = %v, want queued", body["status"])
	}
	if offline.Len() != 1 {
		t.Fatalf("queue depth = %d, want 1", offline.Len())
	}

	// The queued entry replays as a barcode lookup.
	var replayed []queue.Entry
	offline.Flush(context.Background(), func(ctx context.Context, e queue.Entry) error {
		replayed = append(replayed, e)
		return nil
	})
	if len(replayed) != 1 || replayed[0].Type != queue.RequestScanLookup {
		t.Fatalf("replayed = %+v, want one scan_lookup entry", replayed)
	}
	if barcode, ok := replayed[0].Payload.(string); !ok || barcode != "555" {
		t.Errorf("payload = %v, want barcode 555", replayed[0].Payload)
	}
}

func TestLookupHandlerFailsClosedWhenOnline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	api := remote.NewAPIClient(server.URL, "", time.Second)
	offline := queue.New(nil)
	handler := lookupHandler(api, alwaysOnlineProber(), offline)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lookup?barcode=555", nil))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if offline.Len() != 0 {
		t.Errorf("queue depth = %d for an online failure, want 0", offline.Len())
	}
}

func TestLookupHandlerRejectsBadRequests(t *testing.T) {
	api := remote.NewAPIClient("http://127.0.0.1:1", "", time.Second)
	offline := queue.New(nil)
	handler := lookupHandler(api, alwaysOnlineProber(), offline)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/lookup?barcode=555", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lookup", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing-barcode status = %d, want 400", rec.Code)
	}
}

func alwaysOnlineProber() remote.Prober {
	return remote.ProberFunc(func(context.Context) bool { return true })
}
