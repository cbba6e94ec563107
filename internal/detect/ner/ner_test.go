package ner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ljcooper54/DeID/internal/models"
	"github.com/ljcooper54/DeID/internal/shared"
)

func TestClassify(t *testing.T) {
	ctx := context.Background()

	t.Run("MapsAndFilters", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/classify" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"spans":[
				{"start":0,"end":10,"label":"PERSON","text":"John Smith","score":0.95},
				{"start":14,"end":18,"label":"ORG","text":"Acme","score":0.4},
				{"start":22,"end":29,"label":"DATE","text":"Q1 2025","score":0.99}
			]}`))
		}))
		defer server.Close()

		client := New(server.URL, time.Second, 0.5)
		spans, err := client.Classify(ctx, "John Smith of Acme in Q1 2025")
		if err != nil {
			t.Fatalf("classify failed: %v", err)
		}

		// The low-confidence ORG and the temporal DATE must both be gone.
		if len(spans) != 1 {
			t.Fatalf("expected 1 span, got %v", spans)
		}
		if spans[0].Type != models.EntityPerson || spans[0].Text != "John Smith" {
			t.Errorf("unexpected span %+v", spans[0])
		}
		if spans[0].Source != models.SourceClassifier {
			t.Errorf("expected classifier source, got %v", spans[0].Source)
		}
	})

	t.Run("DropsOutOfBoundsSpans", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"spans":[{"start":0,"end":999,"label":"PERSON","text":"x","score":1}]}`))
		}))
		defer server.Close()

		client := New(server.URL, time.Second, 0)
		spans, err := client.Classify(ctx, "short")
		if err != nil {
			t.Fatalf("classify failed: %v", err)
		}
		if len(spans) != 0 {
			t.Errorf("expected out-of-bounds span dropped, got %v", spans)
		}
	})

	t.Run("Unreachable", func(t *testing.T) {
		client := New("http://127.0.0.1:1", time.Second, 0)
		if _, err := client.Classify(ctx, "text"); !errors.Is(err, shared.ErrClassifierUnavailable) {
			t.Fatalf("expected ErrClassifierUnavailable, got %v", err)
		}
	})

	t.Run("ServerError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := New(server.URL, time.Second, 0)
		if _, err := client.Classify(ctx, "text"); !errors.Is(err, shared.ErrClassifierUnavailable) {
			t.Fatalf("expected ErrClassifierUnavailable, got %v", err)
		}
	})
}
