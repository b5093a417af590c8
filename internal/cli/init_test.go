package cli

import (
	"context"
	"path/filepath"
	"testing"

	"roadrich/internal/config"
	"roadrich/internal/report"
	memsheet "roadrich/internal/sheets/memory"
	"roadrich/internal/storage"
	"roadrich/internal/storage/memory"
)

func TestOpenStore(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
		check   func(t *testing.T, s storage.Store)
	}{
		{
			name: "memory backend",
			cfg:  config.Config{DataBackend: "memory"},
			check: func(t *testing.T, s storage.Store) {
				if _, ok := s.(*memory.Store); !ok {
					t.Errorf("expected *memory.Store, got %T", s)
				}
			},
		},
		{
			name: "sqlite backend",
			cfg:  config.Config{DataBackend: "sqlite", SQLiteDBPath: filepath.Join(t.TempDir(), "rr.db")},
			check: func(t *testing.T, s storage.Store) {
				if _, ok := s.(*storage.SQLiteRepository); !ok {
					t.Errorf("expected *storage.SQLiteRepository, got %T", s)
				}
				if err := s.Ping(context.Background()); err != nil {
					t.Errorf("ping: %v", err)
				}
			},
		},
		{
			name:    "unknown backend",
			cfg:     config.Config{DataBackend: "sheets"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := OpenStore(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("OpenStore() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer s.Close()
			tt.check(t, s)
		})
	}
}

func TestConnectAMQPDisabled(t *testing.T) {
	client, err := ConnectAMQP(&config.Config{})
	if err != nil || client != nil {
		t.Fatalf("ConnectAMQP() = %v, %v; want nil, nil", client, err)
	}
}

func TestOpenMirrorFallsBackToMemory(t *testing.T) {
	m, err := OpenMirror(context.Background(), &config.Config{})
	if err != nil {
		t.Fatalf("OpenMirror() error = %v", err)
	}
	if _, ok := m.(*memsheet.Store); !ok {
		t.Errorf("expected memory mirror, got %T", m)
	}
}

func TestOpenMirrorBadCredentials(t *testing.T) {
	_, err := OpenMirror(context.Background(), &config.Config{
		GoogleSpreadsheetID:      "sheet",
		GoogleServiceAccountJSON: "not json",
	})
	if err == nil {
		t.Fatal("expected an error for malformed credentials")
	}
}

func TestNewComposerUsesReportSettings(t *testing.T) {
	c := NewComposer(&config.Config{ReportFilePrefix: "bilan", ReportProductURL: "example.org"})
	if c == nil {
		t.Fatal("nil composer")
	}
	if c.Policy() != report.DefaultPolicy() {
		t.Errorf("policy = %+v, want defaults", c.Policy())
	}
}

func TestSetupLoggerUnknownLevel(t *testing.T) {
	logger := SetupLogger("loud", "test")
	if logger.Component() != "test" {
		t.Errorf("component = %q", logger.Component())
	}
}
