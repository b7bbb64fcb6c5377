package importer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func newPagedServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := mux.NewRouter()
	r.HandleFunc("/organizations/", func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Query().Get("page") {
		case "", "1":
			writeJSON(t, w, map[string]any{
				// relative on purpose, must resolve against the page URL
				"next": "/organizations/?page=2",
				"results": []any{
					map[string]any{"origin_id": "a"},
					map[string]any{"origin_id": "b"},
				},
			})
		case "2":
			writeJSON(t, w, map[string]any{
				"next":    nil,
				"results": []any{map[string]any{"origin_id": "c"}},
			})
		default:
			http.NotFound(w, req)
		}
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func collect(t *testing.T, f *Fetcher, url string) []Record {
	t.Helper()
	var out []Record
	require.NoError(t, f.Fetch(context.Background(), url, func(rec Record) error {
		out = append(out, rec)
		return nil
	}))
	return out
}

func TestFetch_WalksAllPages(t *testing.T) {
	srv := newPagedServer(t)
	f := NewFetcher(srv.Client(), Config{NextKey: "next", ResultsKey: "results"}, logrus.New())

	records := collect(t, f, srv.URL+"/organizations/?page=1")
	require.Len(t, records, 3)
	require.Equal(t, "a", records[0]["origin_id"])
	require.Equal(t, "c", records[2]["origin_id"])
}

func TestFetch_MetaNextLink(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/orgs/", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Get("offset") == "" {
			writeJSON(t, w, map[string]any{
				"meta":    map[string]any{"next": "/orgs/?offset=1"},
				"objects": []any{map[string]any{"origin_id": "a"}},
			})
			return
		}
		writeJSON(t, w, map[string]any{
			"meta":    map[string]any{"next": nil},
			"objects": []any{map[string]any{"origin_id": "b"}},
		})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	f := NewFetcher(srv.Client(), Config{NextKey: "next", ResultsKey: "objects", HasMeta: true}, logrus.New())
	records := collect(t, f, srv.URL+"/orgs/")
	require.Len(t, records, 2)
}

func TestFetch_RootArrayWithoutPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(t, w, []any{
			map[string]any{"id": "1"},
			map[string]any{"id": "2"},
		})
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(srv.Client(), Config{}, logrus.New())
	records := collect(t, f, srv.URL)
	require.Len(t, records, 2)
}

func TestFetch_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(srv.Client(), Config{}, logrus.New())
	err := f.Fetch(context.Background(), srv.URL, func(Record) error { return nil })

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}

func TestFetch_CallbackErrorAborts(t *testing.T) {
	srv := newPagedServer(t)
	f := NewFetcher(srv.Client(), Config{NextKey: "next", ResultsKey: "results"}, logrus.New())

	calls := 0
	err := f.Fetch(context.Background(), srv.URL+"/organizations/?page=1", func(Record) error {
		calls++
		return &InvalidRecordError{Message: "bad record"}
	})
	var invalid *InvalidRecordError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, 1, calls)
}

func TestLinkData_ResolvesRelativeRef(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/organizations/42/", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(t, w, map[string]any{"origin_id": "forty-two"})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	f := NewFetcher(srv.Client(), Config{}, logrus.New())
	payload, err := f.LinkData(context.Background(), srv.URL+"/organizations/", "/organizations/42/")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"origin_id": "forty-two"}, payload)
}
