package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *Config
		wantErr bool
	}{
		{
			name: "defaults",
			env:  map[string]string{},
			want: &Config{
				DatabasePath:    "./data/watch.db",
				LogLevel:        "info",
				NtfyTopic:       "",
				RefreshInterval: 30 * time.Minute,
				RefreshWorkers:  4,
				EntryTimeout:    45 * time.Second,
				MinDelta:        decimal.New(1, -2),
				MinDeltaPct:     decimal.Zero,
			},
		},
		{
			name: "all values set",
			env: map[string]string{
				"DATABASE_PATH":    "/tmp/watch.db",
				"LOG_LEVEL":        "debug",
				"NTFY_TOPIC":       "my-prices",
				"REFRESH_INTERVAL": "1h",
				"REFRESH_WORKERS":  "8",
				"ENTRY_TIMEOUT":    "20s",
				"MIN_DELTA":        "50",
				"MIN_DELTA_PCT":    "2.5",
			},
			want: &Config{
				DatabasePath:    "/tmp/watch.db",
				LogLevel:        "debug",
				NtfyTopic:       "my-prices",
				RefreshInterval: time.Hour,
				RefreshWorkers:  8,
				EntryTimeout:    20 * time.Second,
				MinDelta:        decimal.NewFromInt(50),
				MinDeltaPct:     decimal.RequireFromString("2.5"),
			},
		},
		{
			name:    "invalid interval",
			env:     map[string]string{"REFRESH_INTERVAL": "soon"},
			wantErr: true,
		},
		{
			name:    "negative interval",
			env:     map[string]string{"REFRESH_INTERVAL": "-5m"},
			wantErr: true,
		},
		{
			name:    "invalid workers",
			env:     map[string]string{"REFRESH_WORKERS": "many"},
			wantErr: true,
		},
		{
			name:    "zero workers",
			env:     map[string]string{"REFRESH_WORKERS": "0"},
			wantErr: true,
		},
		{
			name:    "invalid delta",
			env:     map[string]string{"MIN_DELTA": "dużo"},
			wantErr: true,
		},
		{
			name:    "negative delta",
			env:     map[string]string{"MIN_DELTA_PCT": "-1"},
			wantErr: true,
		},
	}

	keys := []string{
		"DATABASE_PATH", "LOG_LEVEL", "NTFY_TOPIC", "REFRESH_INTERVAL",
		"REFRESH_WORKERS", "ENTRY_TIMEOUT", "MIN_DELTA", "MIN_DELTA_PCT",
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range keys {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			opt := cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })
			if diff := cmp.Diff(tt.want, got, opt); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
