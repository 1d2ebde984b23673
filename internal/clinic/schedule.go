package clinic

// Schedule is a validated (date, time) pair. Construct it with ParseSchedule
// so every consumer downstream can rely on the shape being checked already.
type Schedule struct {
	Date string // YYYY-MM-DD
	Time string // HH:MM
}

// ParseSchedule checks the positional shape of the date and time strings.
// It deliberately does not check calendar validity: "2023-13-45" passes here
// and is rejected by the store's own constraints, which is where range and
// grid rules (08:00-13:00, 14:00-20:00, 30 minute steps) live.
func ParseSchedule(date, timeOfDay string) (Schedule, error) {
	if !validDateShape(date) || !validTimeShape(timeOfDay) {
		return Schedule{}, ErrInvalidSchedule
	}
	return Schedule{Date: date, Time: timeOfDay}, nil
}

func validDateShape(date string) bool {
	if len(date) != 10 || date[4] != '-' || date[7] != '-' {
		return false
	}
	return allDigits(date[:4]) && allDigits(date[5:7]) && allDigits(date[8:])
}

func validTimeShape(timeOfDay string) bool {
	if len(timeOfDay) != 5 || timeOfDay[2] != ':' {
		return false
	}
	return allDigits(timeOfDay[:2]) && allDigits(timeOfDay[3:])
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
