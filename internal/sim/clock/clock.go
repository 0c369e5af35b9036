// Package clock holds the game calendar: a discrete hour counter that rolls
// into days, seasons, and years, and the per-season weather draw. It is pure
// derived state; the simulation loop decides when an hour elapses.
package clock

type Season string

const (
	Spring Season = "Spring"
	Summer Season = "Summer"
	Autumn Season = "Autumn"
	Winter Season = "Winter"
)

type Weather string

const (
	Sunny  Weather = "Sunny"
	Cloudy Weather = "Cloudy"
	Rainy  Weather = "Rainy"
	Snowy  Weather = "Snowy"
	Windy  Weather = "Windy"
	Stormy Weather = "Stormy"
)

// WeatherOrder fixes the iteration order for cumulative probability draws so a
// given uniform sample always maps to the same weather.
var WeatherOrder = []Weather{Sunny, Cloudy, Rainy, Snowy, Windy, Stormy}

// GrowthModifier is the fixed growth multiplier a weather kind applies to all
// crops. Unlisted kinds (Cloudy) are neutral.
func (w Weather) GrowthModifier() float64 {
	switch w {
	case Rainy:
		return 1.2
	case Snowy:
		return 0.7
	case Stormy:
		return 0.5
	case Sunny:
		return 1.1
	case Windy:
		return 0.9
	}
	return 1.0
}

type GameDate struct {
	Day  int `json:"day"`
	Hour int `json:"hour"`
	Year int `json:"year"`
}

// Start is the calendar position of a fresh farm.
func Start() GameDate { return GameDate{Day: 1, Hour: 6, Year: 1} }

// SeasonOf bands the day-of-year into four equal seasons.
func SeasonOf(day, daysPerSeason int) Season {
	if daysPerSeason <= 0 {
		return Spring
	}
	switch {
	case day <= daysPerSeason:
		return Spring
	case day <= daysPerSeason*2:
		return Summer
	case day <= daysPerSeason*3:
		return Autumn
	default:
		return Winter
	}
}

func (d GameDate) Season(daysPerSeason int) Season {
	return SeasonOf(d.Day, daysPerSeason)
}

// Advance moves the calendar forward one hour. dayRolled reports an hour-24
// rollover (the moment weather re-rolls); the year wraps after four seasons.
func Advance(d GameDate, daysPerSeason int) (next GameDate, dayRolled bool) {
	next = d
	next.Hour++
	if next.Hour >= 24 {
		next.Hour = 0
		next.Day++
		dayRolled = true
	}
	if daysPerSeason > 0 && next.Day > daysPerSeason*4 {
		next.Day = 1
		next.Year++
	}
	return next, dayRolled
}

// RollWeather draws from a season distribution using one uniform sample in
// [0,1). Entries with probability 0 are skipped. If the distribution is empty
// or u lands beyond the cumulative mass (a malformed table), the current
// weather is kept.
func RollWeather(dist map[Weather]float64, u float64, current Weather) Weather {
	cumulative := 0.0
	for _, w := range WeatherOrder {
		p := dist[w]
		if p == 0 {
			continue
		}
		cumulative += p
		if u < cumulative {
			return w
		}
	}
	return current
}
