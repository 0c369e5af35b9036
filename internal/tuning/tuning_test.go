package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"farmstead.gg/internal/sim/clock"
)

func TestDefaultsValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestDefaultWeatherSumsToOne(t *testing.T) {
	d := Defaults()
	for _, season := range []clock.Season{clock.Spring, clock.Summer, clock.Autumn, clock.Winter} {
		dist := d.WeatherDist(season)
		if dist == nil {
			t.Fatalf("%s: missing distribution", season)
		}
		sum := 0.0
		for _, p := range dist {
			sum += p
		}
		if sum < 0.999999 || sum > 1.000001 {
			t.Errorf("%s: probabilities sum to %v", season, sum)
		}
	}
}

func TestLoadOverridesAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	body := []byte("tick_ms: 250\nstorage_max: 99\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	tune, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tune.TickMs != 250 || tune.StorageMax != 99 {
		t.Fatalf("overrides not applied: %+v", tune)
	}
	// Untouched fields keep defaults.
	if tune.GridWidth != 31 || tune.ExpansionBaseCost != 800 {
		t.Fatalf("defaults lost: %+v", tune)
	}
}

func TestLoadRejectsBadWeather(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	body := []byte("weather:\n  spring: {Sunny: 0.5}\n  summer: {Sunny: 1.0}\n  autumn: {Sunny: 1.0}\n  winter: {Sunny: 1.0}\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for spring summing to 0.5")
	}
}

func TestValidateRejectsNonIncreasingExpansion(t *testing.T) {
	d := Defaults()
	d.ExpansionMultiplier = 1.0
	if err := d.Validate(); err == nil {
		t.Fatalf("expected error for multiplier 1.0")
	}
}
