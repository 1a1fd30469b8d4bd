package dataprocessing

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

const (
	// days between the 1900 and 1904 spreadsheet epochs
	epoch1904Offset = 1462
	// serial number of 1970-01-01 in the 1899-12-30 convention
	unixEpochSerial = 25569
	// largest instant a spreadsheet date may represent, in ms
	maxDateMillis = 8.64e15
)

var (
	serialText = regexp.MustCompile(`^\d+(?:[.,]\d+)?$`)

	// " +02:00", " -0500", " UTC+2", "GMT+01:00" at the end of the string
	tzSuffix = regexp.MustCompile(`(?i)(?:\s+(?:GMT|UTC)?\s*|\s*(?:GMT|UTC)\s*)[+-]\d{1,2}(?::?\d{2})?\s*$`)

	isoLike = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:[ T](\d{2})(?::(\d{2})(?::(\d{2}))?)?)?`)

	dayFirst = regexp.MustCompile(`^(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})(?:\s+(\d{1,2})(?::(\d{2})(?::(\d{2}))?)?(?:\.(\d{1,3}))?)?$`)
)

// ParseDate converts a cell into a YYYY-MM-DD day key. The second result is
// false when the cell holds no recognizable date.
//
// Numeric cells, and text made only of digits with at most one decimal
// separator, are spreadsheet serial numbers; date1904 shifts them by 1462
// days. Text is otherwise tried as a timestamp with its trailing timezone
// suffix removed (the offset is not applied), then as YYYY-MM-DD[ T]HH:MM:SS,
// then as DD/MM/YYYY with optional time, then through a generic date parser.
// Calendar fields are taken at face value, without timezone conversion.
func ParseDate(c domain.Cell, date1904 bool) (string, bool) {
	switch c.Kind {
	case domain.CellNumber:
		return serialToDay(c.Number, date1904)
	case domain.CellText:
		return parseDateText(c.Text, date1904)
	default:
		return "", false
	}
}

func parseDateText(raw string, date1904 bool) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	s = tzSuffix.ReplaceAllString(s, "")

	if serialText.MatchString(s) {
		serial, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
		if err == nil {
			if day, ok := serialToDay(serial, date1904); ok {
				return day, true
			}
		}
	}

	if m := isoLike.FindStringSubmatch(s); m != nil {
		return civilDay(m[1], m[2], m[3], m[4], m[5], m[6]), true
	}

	if m := dayFirst.FindStringSubmatch(s); m != nil {
		return civilDay(m[3], m[2], m[1], m[4], m[5], m[6]), true
	}

	return fallbackDay(strings.TrimSpace(raw))
}

// serialToDay follows the 1899-12-30 epoch: (serial - 25569) days after 1970-01-01
func serialToDay(serial float64, date1904 bool) (string, bool) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) {
		return "", false
	}
	if date1904 {
		serial += epoch1904Offset
	}
	ms := math.Floor((serial-unixEpochSerial)*86400*1000 + 0.5)
	if math.Abs(ms) > maxDateMillis {
		return "", false
	}
	return formatDay(time.UnixMilli(int64(ms)).UTC()), true
}

// civilDay builds a day from calendar fields; out-of-range fields roll over
// the way time.Date normalizes them.
func civilDay(year, month, day, hour, minute, second string) string {
	t := time.Date(atoi(year), time.Month(atoi(month)), atoi(day),
		atoi(hour), atoi(minute), atoi(second), 0, time.UTC)
	return formatDay(t)
}

func fallbackDay(s string) (day string, ok bool) {
	// dateparse can panic on some malformed inputs
	defer func() {
		if recover() != nil {
			day, ok = "", false
		}
	}()
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return "", false
	}
	return formatDay(t), true
}

func formatDay(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
