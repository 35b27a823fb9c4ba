package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FromSeconds renders a seconds value as an SRT timestamp (HH:MM:SS,mmm).
// Milliseconds are rounded, with overflow carried into the seconds field, so
// 1.9996 becomes 00:00:02,000. Negative and NaN inputs yield the zero
// timestamp.
func FromSeconds(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		return "00:00:00,000"
	}
	whole := math.Floor(seconds)
	millis := int(math.Round((seconds - whole) * 1000))
	total := int(whole)
	if millis >= 1000 {
		total += millis / 1000
		millis %= 1000
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ToSeconds parses an SRT timestamp back into seconds. A period is accepted in
// place of the standard comma. Malformed input yields 0; callers that need to
// reject bad timestamps must validate before calling.
func ToSeconds(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0
	}
	if hours < 0 || minutes < 0 || seconds < 0 || millis < 0 {
		return 0
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000
}
