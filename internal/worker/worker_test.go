package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "valid default config",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name: "interval too short",
			config: Config{
				Interval:        30 * time.Second,
				TaskTimeout:     1 * time.Minute,
				ShutdownTimeout: 30 * time.Second,
				MarkerRetention: 30 * 24 * time.Hour,
			},
			wantErr: true,
		},
		{
			name: "task timeout too short",
			config: Config{
				Interval:        1 * time.Hour,
				TaskTimeout:     100 * time.Millisecond,
				ShutdownTimeout: 30 * time.Second,
				MarkerRetention: 30 * 24 * time.Hour,
			},
			wantErr: true,
		},
		{
			name: "retention shorter than a day",
			config: Config{
				Interval:        1 * time.Hour,
				TaskTimeout:     1 * time.Minute,
				ShutdownTimeout: 30 * time.Second,
				MarkerRetention: 12 * time.Hour,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// fakeTask counts its runs and optionally fails.
type fakeTask struct {
	name string
	runs atomic.Int64
	err  error
}

func (f *fakeTask) Name() string { return f.name }

func (f *fakeTask) Run(ctx context.Context) (int64, error) {
	f.runs.Add(1)
	return 1, f.err
}

func TestWorker_RunsTasksOnStart(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := DefaultConfig()
	w, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	task := &fakeTask{name: "fake"}
	w.Register(task)

	w.Start(context.Background())
	defer w.Stop()

	// The initial sweep runs immediately; poll briefly for it
	deadline := time.Now().Add(2 * time.Second)
	for task.runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if task.runs.Load() == 0 {
		t.Error("expected initial sweep to run the task")
	}
}

func TestWorker_FailingTaskDoesNotBlockOthers(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := DefaultConfig()
	w, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	failing := &fakeTask{name: "failing", err: errors.New("boom")}
	healthy := &fakeTask{name: "healthy"}
	w.Register(failing)
	w.Register(healthy)

	w.Start(context.Background())
	defer w.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for healthy.runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if healthy.runs.Load() == 0 {
		t.Error("expected healthy task to run despite earlier failure")
	}
}

func TestWorker_RejectsInvalidConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := New(Config{}, logger)
	if err == nil {
		t.Error("expected error for zero config")
	}
}
