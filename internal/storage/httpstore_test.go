package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakeStorageAPI serves /api/v1/storage/{key} from a map, failing the
// first failFirst requests with 503.
type fakeStorageAPI struct {
	mu        sync.Mutex
	values    map[string]string
	failFirst int
	calls     int
	apiKeys   []string
}

func (f *fakeStorageAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.apiKeys = append(f.apiKeys, r.Header.Get("X-API-Key"))
	if f.calls <= f.failFirst {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	key := r.URL.Path[len("/api/v1/storage/"):]
	switch r.Method {
	case http.MethodGet:
		v, ok := f.values[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(storageValue{Key: key, Value: v})
	case http.MethodPut:
		var body storageValue
		json.NewDecoder(r.Body).Decode(&body)
		f.values[key] = body.Value
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		delete(f.values, key)
		w.WriteHeader(http.StatusNoContent)
	}
}

func newHTTPStoreForTest(t *testing.T, api *fakeStorageAPI) *HTTPStore {
	t.Helper()
	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)
	s := NewHTTPStore(ts.URL+"/", "k1")
	s.backoff = time.Millisecond
	return s
}

// TestHTTPStoreRoundTrip verifies put, get, miss and delete against the
// storage API, with the API key attached to every request.
func TestHTTPStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	api := &fakeStorageAPI{values: map[string]string{}}
	s := newHTTPStoreForTest(t, api)

	if err := s.Set(ctx, KeyProfile, `{"name":"B"}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get(ctx, KeyProfile)
	if err != nil || !ok || v != `{"name":"B"}` {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
	if _, ok, err := s.Get(ctx, "nope"); ok || err != nil {
		t.Errorf("Get(missing) = %v, %v", ok, err)
	}
	if err := s.Set(ctx, KeyProfile, ""); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := api.values[KeyProfile]; ok {
		t.Error("value still present after delete")
	}
	for _, k := range api.apiKeys {
		if k != "k1" {
			t.Errorf("X-API-Key = %q, want k1", k)
		}
	}
}

// TestHTTPStoreRetries verifies 5xx responses are retried and a
// success within the attempt budget is returned.
func TestHTTPStoreRetries(t *testing.T) {
	api := &fakeStorageAPI{values: map[string]string{"k": "v"}, failFirst: 2}
	s := newHTTPStoreForTest(t, api)

	v, ok, err := s.Get(context.Background(), "k")
	if err != nil || !ok || v != "v" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
	if api.calls != 3 {
		t.Errorf("calls = %d, want 3", api.calls)
	}
}

// TestHTTPStoreGivesUp verifies the error after exhausting retries.
func TestHTTPStoreGivesUp(t *testing.T) {
	api := &fakeStorageAPI{values: map[string]string{}, failFirst: 10}
	s := newHTTPStoreForTest(t, api)

	if _, _, err := s.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected error")
	}
	if api.calls != 3 {
		t.Errorf("calls = %d, want 3", api.calls)
	}
}
