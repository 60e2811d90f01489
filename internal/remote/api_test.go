package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLookupHitsPrimaryServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/barcode/012345678905" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(apiResponse{
			Success: true,
			Product: &Product{Barcode: "012345678905", Name: "Oat Milk", Found: true},
		})
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "", time.Second)
	product, err := client.Lookup(context.Background(), "012345678905")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !product.Found || product.Name != "Oat Milk" {
		t.Errorf("product = %+v", product)
	}
	if product.Source != "server" {
		t.Errorf("Source = %q, want server", product.Source)
	}
}

func TestLookupNotFoundIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apiResponse{Success: true})
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "", time.Second)
	product, err := client.Lookup(context.Background(), "000")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if product.Found {
		t.Error("Found = true for an unknown barcode")
	}
	if product.Barcode != "000" || product.Source != "not_found" {
		t.Errorf("product = %+v", product)
	}
}

func TestLookupFallsBackOnTransportError(t *testing.T) {
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/product/555.json" {
			t.Errorf("fallback path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": 1,
			"product": map[string]any{
				"product_name": "Dark Chocolate",
				"brands":       "Lindt",
			},
		})
	}))
	defer fallback.Close()

	// An unroutable primary forces the fallback path.
	client := NewAPIClient("http://127.0.0.1:1", fallback.URL, time.Second)
	product, err := client.Lookup(context.Background(), "555")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !product.Found || product.Name != "Dark Chocolate" {
		t.Errorf("product = %+v", product)
	}
	if product.Source != "openfoodfacts" {
		t.Errorf("Source = %q, want openfoodfacts", product.Source)
	}
}

func TestLookupFailsWithoutFallback(t *testing.T) {
	client := NewAPIClient("http://127.0.0.1:1", "", time.Second)
	if _, err := client.Lookup(context.Background(), "555"); err == nil {
		t.Error("expected an error when the server is unreachable and no fallback is set")
	}
}

func TestContribute(t *testing.T) {
	var got Contribution
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/barcode/contribute" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(apiResponse{Success: true})
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "", time.Second)
	err := client.Contribute(context.Background(), Contribution{
		Barcode: "999", Name: "Homebrand Beans", OwnerID: "owner-1",
	})
	if err != nil {
		t.Fatalf("contribute failed: %v", err)
	}
	if got.Barcode != "999" || got.Name != "Homebrand Beans" {
		t.Errorf("server received %+v", got)
	}
}

func TestContributeRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apiResponse{Success: false, Detail: "barcode already known"})
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "", time.Second)
	if err := client.Contribute(context.Background(), Contribution{Barcode: "1"}); err == nil {
		t.Error("expected an error for a rejected contribution")
	}
}

func TestHTTPDocStoreCommit(t *testing.T) {
	var received struct {
		Ops []WriteOp `json:"ops"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/store/batch" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&received)
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer server.Close()

	docs := NewHTTPDocStore(server.URL, time.Second)
	ops := []WriteOp{{Collection: CollectionAnalytics, OwnerID: "owner-1", DocID: "e1"}}
	if err := docs.Commit(context.Background(), ops); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if len(received.Ops) != 1 || received.Ops[0].DocID != "e1" {
		t.Errorf("server received %+v", received.Ops)
	}

	// Oversized groups never reach the wire.
	big := make([]WriteOp, MaxBatchOps+1)
	if err := docs.Commit(context.Background(), big); !errors.Is(err, ErrBatchTooLarge) {
		t.Errorf("oversized commit err = %v, want ErrBatchTooLarge", err)
	}
}

func TestHTTPDocStoreList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/store/grocery_items" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if owner := r.URL.Query().Get("owner"); owner != "owner-1" {
			t.Errorf("owner = %q", owner)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"documents": []Document{
				{ID: "d1", UpdatedAt: time.Now(), Data: map[string]any{"name": "Milk"}},
			},
		})
	}))
	defer server.Close()

	docs := NewHTTPDocStore(server.URL, time.Second)
	list, err := docs.List(context.Background(), "owner-1", CollectionInventory)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != "d1" {
		t.Errorf("documents = %+v", list)
	}
}

func TestHTTPProber(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	if !NewHTTPProber(healthy.URL, time.Second).Online(context.Background()) {
		t.Error("healthy server reported offline")
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	if NewHTTPProber(failing.URL, time.Second).Online(context.Background()) {
		t.Error("failing server reported online")
	}
	if NewHTTPProber("http://127.0.0.1:1", 100*time.Millisecond).Online(context.Background()) {
		t.Error("unreachable server reported online")
	}
}
