package weatherapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const payload = `{"current":{"temp":27.4,"humidity":78},"timezone":"America/Sao_Paulo"}`

func TestGetWeatherSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/weather" {
			t.Errorf("expected path /api/weather, got %s", r.URL.Path)
		}
		q := r.URL.Query()
		if got := q.Get("lat"); got != "-20.3155" {
			t.Errorf("expected lat=-20.3155, got %s", got)
		}
		if got := q.Get("lng"); got != "-40.3128" {
			t.Errorf("expected lng=-40.3128, got %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	got, err := New(BaseUrlOption(srv.URL)).GetWeather(context.Background(), -20.3155, -40.3128)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != payload {
		t.Errorf("payload was modified: got %s", got)
	}
}

func TestGetWeatherNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("no weather"))
	}))
	defer srv.Close()

	_, err := New(BaseUrlOption(srv.URL)).GetWeather(context.Background(), 1, 2)
	if err == nil {
		t.Fatal("expected error for 404 response, got nil")
	}
	expected := "error code 404 returned from weather: no weather"
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestGetWeatherMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current":`))
	}))
	defer srv.Close()

	if _, err := New(BaseUrlOption(srv.URL)).GetWeather(context.Background(), 1, 2); err == nil {
		t.Fatal("expected error for truncated body, got nil")
	}
}

func TestGetWeatherContextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := New(BaseUrlOption(srv.URL)).GetWeather(ctx, 1, 2); err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
}
