package clock

import (
	"math"
	"testing"
)

func TestSeasonBands(t *testing.T) {
	cases := []struct {
		day  int
		want Season
	}{
		{1, Spring}, {30, Spring},
		{31, Summer}, {60, Summer},
		{61, Autumn}, {90, Autumn},
		{91, Winter}, {120, Winter},
	}
	for _, c := range cases {
		if got := SeasonOf(c.day, 30); got != c.want {
			t.Errorf("SeasonOf(%d): got %s want %s", c.day, got, c.want)
		}
	}
}

func TestAdvanceHourAndDayRollover(t *testing.T) {
	d := GameDate{Day: 1, Hour: 23, Year: 1}
	next, rolled := Advance(d, 30)
	if !rolled {
		t.Fatalf("expected day rollover at hour 23 -> 0")
	}
	if next.Hour != 0 || next.Day != 2 || next.Year != 1 {
		t.Fatalf("got %+v", next)
	}

	d = GameDate{Day: 1, Hour: 5, Year: 1}
	next, rolled = Advance(d, 30)
	if rolled {
		t.Fatalf("unexpected rollover mid-day")
	}
	if next.Hour != 6 || next.Day != 1 {
		t.Fatalf("got %+v", next)
	}
}

func TestAdvanceYearRollover(t *testing.T) {
	d := GameDate{Day: 120, Hour: 23, Year: 3}
	next, rolled := Advance(d, 30)
	if !rolled {
		t.Fatalf("expected day rollover")
	}
	if next.Day != 1 || next.Year != 4 {
		t.Fatalf("year rollover: got %+v", next)
	}
}

func TestRollWeatherCumulativeDraw(t *testing.T) {
	// Matches the spring table: Sunny .4, Cloudy .25, Rainy .3, Stormy .05.
	dist := map[Weather]float64{
		Sunny:  0.4,
		Cloudy: 0.25,
		Rainy:  0.3,
		Stormy: 0.05,
	}
	cases := []struct {
		u    float64
		want Weather
	}{
		{0.0, Sunny},
		{0.39, Sunny},
		{0.40, Cloudy},
		{0.64, Cloudy},
		{0.65, Rainy},
		{0.94, Rainy},
		// Snowy and Windy have probability 0 and must be skipped: the order
		// is Sunny, Cloudy, Rainy, Snowy, Windy, Stormy.
		{0.95, Stormy},
		{0.999, Stormy},
	}
	for _, c := range cases {
		if got := RollWeather(dist, c.u, Cloudy); got != c.want {
			t.Errorf("RollWeather(u=%v): got %s want %s", c.u, got, c.want)
		}
	}
}

func TestRollWeatherZeroEntriesNeverDrawn(t *testing.T) {
	dist := map[Weather]float64{Sunny: 1.0}
	for u := 0.0; u < 1.0; u += 0.01 {
		if got := RollWeather(dist, u, Cloudy); got != Sunny {
			t.Fatalf("u=%v: got %s", u, got)
		}
	}
}

func TestRollWeatherEmptyDistKeepsCurrent(t *testing.T) {
	if got := RollWeather(nil, 0.5, Windy); got != Windy {
		t.Fatalf("got %s want Windy", got)
	}
}

func TestGrowthModifiers(t *testing.T) {
	cases := map[Weather]float64{
		Rainy:  1.2,
		Snowy:  0.7,
		Stormy: 0.5,
		Sunny:  1.1,
		Windy:  0.9,
		Cloudy: 1.0,
	}
	for w, want := range cases {
		if got := w.GrowthModifier(); math.Abs(got-want) > 1e-9 {
			t.Errorf("%s: got %v want %v", w, got, want)
		}
	}
}
