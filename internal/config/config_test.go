package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"shopfloor/internal/config"
)

func TestDefaultParsesAndValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	names := cfg.ShiftNames()
	want := []string{"all-day", "shift-1", "shift-2", "shift-3"}
	if len(names) != len(want) {
		t.Fatalf("shift names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("shift names = %v, want %v", names, want)
		}
	}
	if cfg.Targets.Quality != 95 || cfg.Targets.Cost != 30 {
		t.Fatalf("targets = %+v", cfg.Targets)
	}
}

func TestShiftWindowDayShift(t *testing.T) {
	cfg := config.Default()
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	start, end, err := cfg.ShiftWindow("shift-1", day)
	if err != nil {
		t.Fatal(err)
	}
	if !start.Equal(time.Date(2024, 3, 4, 6, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v", start)
	}
	if !end.Equal(time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)) {
		t.Fatalf("end = %v", end)
	}
}

func TestShiftWindowWrapsPastMidnight(t *testing.T) {
	cfg := config.Default()
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	start, end, err := cfg.ShiftWindow("shift-3", day)
	if err != nil {
		t.Fatal(err)
	}
	if !start.Equal(time.Date(2024, 3, 4, 22, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v", start)
	}
	if !end.Equal(time.Date(2024, 3, 5, 6, 0, 0, 0, time.UTC)) {
		t.Fatalf("end = %v, want next-day 06:00", end)
	}
}

func TestShiftWindowAllDayCoversFullDay(t *testing.T) {
	cfg := config.Default()
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	start, end, err := cfg.ShiftWindow("all-day", day)
	if err != nil {
		t.Fatal(err)
	}
	if end.Sub(start) != 24*time.Hour {
		t.Fatalf("span = %v, want 24h", end.Sub(start))
	}
	if !start.Equal(day) {
		t.Fatalf("start = %v", start)
	}
}

func TestShiftWindowUnknownShift(t *testing.T) {
	cfg := config.Default()
	if _, _, err := cfg.ShiftWindow("shift-9", time.Now()); err == nil {
		t.Fatalf("unknown shift accepted")
	}
}

func TestFromYAMLValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"no shifts", "targets:\n  quality: 95\n"},
		{"bad clock", "shifts:\n  day:\n    start: \"6am\"\n    end: \"14:00\"\n"},
		{"quality over 100", "shifts:\n  day:\n    start: \"06:00\"\n    end: \"14:00\"\ntargets:\n  quality: 120\n"},
		{"negative cost", "shifts:\n  day:\n    start: \"06:00\"\n    end: \"14:00\"\ntargets:\n  cost: -1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := config.FromYAML([]byte(tc.yaml)); err == nil {
				t.Fatalf("invalid config accepted")
			}
		})
	}
}

func TestLoadOptionalFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadOptional(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Shifts) == 0 {
		t.Fatalf("expected default shifts")
	}

	if _, err := config.Load(dir); err == nil {
		t.Fatalf("Load should fail without a config file")
	}

	path := filepath.Join(dir, "shopfloor.yml")
	if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = config.Load(dir)
	if err != nil {
		t.Fatalf("load generated config: %v", err)
	}
	if cfg.Targets.Delivery != 100 {
		t.Fatalf("delivery target = %v, want 100", cfg.Targets.Delivery)
	}
}
