package universe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func TestResolve_FiltersAndSorts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"symbols":[
			{"symbol":"ETHUSDT","contractType":"PERPETUAL","quoteAsset":"USDT","status":"TRADING"},
			{"symbol":"BTCUSDT","contractType":"PERPETUAL","quoteAsset":"USDT","status":"TRADING"},
			{"symbol":"BTCUSDT","contractType":"PERPETUAL","quoteAsset":"USDT","status":"TRADING"},
			{"symbol":"BTCUSDT_240927","contractType":"CURRENT_QUARTER","quoteAsset":"USDT","status":"TRADING"},
			{"symbol":"BTCBUSD","contractType":"PERPETUAL","quoteAsset":"BUSD","status":"TRADING"},
			{"symbol":"1000SHIBUSDT","contractType":"PERPETUAL","quoteAsset":"USDT","status":"TRADING"},
			{"symbol":"XRPUSDT","contractType":"PERPETUAL","quoteAsset":"USDT","status":"BREAK"}
		]}`)
	}))
	defer srv.Close()

	got := New(srv.URL, time.Second).Resolve(context.Background())
	want := []string{"BTCUSDT", "ETHUSDT"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve = %v, want %v", got, want)
	}
}

func TestResolve_UnreachableEndpointFallsBack(t *testing.T) {
	// Point at a server that is already closed.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	got := New(srv.URL, 100*time.Millisecond).Resolve(context.Background())
	if !reflect.DeepEqual(got, Fallback) {
		t.Errorf("Resolve = %v, want fallback %v", got, Fallback)
	}
	if len(got) == 0 {
		t.Error("Resolve returned an empty universe")
	}
}

func TestResolve_EmptyAfterFilteringFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"symbols":[
			{"symbol":"BTCBUSD","contractType":"PERPETUAL","quoteAsset":"BUSD","status":"TRADING"}
		]}`)
	}))
	defer srv.Close()

	got := New(srv.URL, time.Second).Resolve(context.Background())
	if !reflect.DeepEqual(got, Fallback) {
		t.Errorf("Resolve = %v, want fallback %v", got, Fallback)
	}
}

func TestResolve_MalformedPayloadFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer srv.Close()

	got := New(srv.URL, time.Second).Resolve(context.Background())
	if !reflect.DeepEqual(got, Fallback) {
		t.Errorf("Resolve = %v, want fallback %v", got, Fallback)
	}
}

func TestResolve_FallbackIsACopy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	got := New(srv.URL, time.Second).Resolve(context.Background())
	got[0] = "MUTATED"
	if Fallback[0] != "BTCUSDT" {
		t.Error("Resolve returned the shared fallback slice, not a copy")
	}
}
