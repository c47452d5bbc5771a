package main

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/iho/folio/internal/adapter/http/middleware"
	"github.com/iho/folio/internal/infrastructure/config"
)

func publisherNames(t *testing.T, cfg *config.Config, client *goredis.Client) []string {
	t.Helper()
	var names []string
	for _, p := range recalcPublishers(cfg, client, nil) {
		names = append(names, p.Name())
	}
	return names
}

func TestRecalcPublishers(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	tests := []struct {
		name   string
		cfg    *config.Config
		client *goredis.Client
		want   []string
	}{
		{"redis enabled", &config.Config{RecalcRedisEnabled: true, RecalcRedisChannel: "c"}, client, []string{"log", "redis"}},
		{"redis disabled", &config.Config{RecalcRedisEnabled: false}, client, []string{"log"}},
		{"no client", &config.Config{RecalcRedisEnabled: true}, nil, []string{"log"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := publisherNames(t, tt.cfg, tt.client)
			if len(got) != len(tt.want) {
				t.Fatalf("expected publishers %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected publishers %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestSweepLimitersStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweepLimiters(ctx, middleware.NewRateLimiter(1, 1))
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweepLimiters did not return after cancel")
	}
}
