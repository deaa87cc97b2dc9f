package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

var inception = domain.Movie{Title: "Inception", ReleaseDate: "2010-07-15", Director: "Christopher Nolan"}

func TestUpsertEnsuresCollectionOncePerVectorSize(t *testing.T) {
	var ensureCalls int32
	var upserted []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/movies":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/movies/points":
			var body struct {
				Points []map[string]any `json:"points"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			upserted = append(upserted, body.Points...)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "movies", nil)
	entries := []domain.VectorEntry{{Vector: []float32{0.1, 0.2}, Movie: inception, Text: "Title: Inception"}}

	for i := 0; i < 2; i++ {
		if err := client.Upsert(context.Background(), entries); err != nil {
			t.Fatalf("Upsert() #%d error = %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}
	if len(upserted) != 2 || upserted[0]["id"] != inception.VectorID() || upserted[0]["id"] != upserted[1]["id"] {
		t.Fatalf("expected deterministic ids, got %+v", upserted)
	}
	payload, _ := upserted[0]["payload"].(map[string]any)
	movie, _ := payload["movie"].(map[string]any)
	if movie["title"] != "Inception" || payload["text"] != "Title: Inception" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/movies" {
			http.Error(w, "boom", http.StatusBadRequest)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "movies", nil)
	err := client.Upsert(context.Background(), []domain.VectorEntry{{Vector: []float32{0.1}, Movie: inception}})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected error with body, got %v", err)
	}
}

func TestEnsureReadyMissingCollectionIsFatalKind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
	}))
	defer server.Close()

	err := New(server.URL, "movies", nil).EnsureReady(context.Background())
	if !domain.IsKind(err, domain.ErrCollectionNotFound) {
		t.Fatalf("expected collection not found, got %v", err)
	}
}

func TestEnsureReadyExistingCollection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/collections/movies" {
			_, _ = w.Write([]byte(`{"result":{"status":"green"}}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	if err := New(server.URL, "movies", nil).EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}
}

func TestQueryDecodesMoviePayload(t *testing.T) {
	var request map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/movies/points/search" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&request)
		_, _ = w.Write([]byte(`{"result":[
			{"score":0.93,"payload":{"movie":{"title":"Inception","release_date":"2010-07-15","rating":8.4},"text":"t"}},
			{"score":0.51,"payload":{"text":"orphan"}}
		]}`))
	}))
	defer server.Close()

	movies, err := New(server.URL, "movies", nil).Query(context.Background(), []float32{0.3, 0.1}, 5)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(movies) != 1 || movies[0].Key() != inception.Key() || movies[0].Rating != 8.4 {
		t.Fatalf("unexpected movies %+v", movies)
	}
	if request["limit"].(float64) != 5 || request["with_payload"] != true {
		t.Fatalf("unexpected request %+v", request)
	}
}

func TestResetToleratesMissingCollection(t *testing.T) {
	var deletes int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete && r.URL.Path == "/collections/movies" {
			atomic.AddInt32(&deletes, 1)
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := New(server.URL, "movies", nil).Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if deletes != 1 {
		t.Fatalf("expected one delete call, got %d", deletes)
	}
}
