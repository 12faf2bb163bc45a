package course

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// MaxDuration bounds a section duration so that course totals stay far from time.Duration overflow.
const MaxDuration = 10000 * time.Hour

var (
	errInvalidDuration = errors.New(`duration must be "HH:MM:SS", "MM:SS" or a number of seconds`)
	errDurationTooLong = errors.New("duration must not exceed 10000:00:00")
	errInvalidDate     = errors.New(`date must be "YYYY-MM-DD"`)
)

// Duration is a time.Duration with second precision, encoded as "HH:MM:SS" in JSON
// and as a number of seconds in the database.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string {
	secs := int64(time.Duration(d).Round(time.Second) / time.Second)
	sign := ""
	if secs < 0 {
		sign = "-"
		secs = -secs
	}
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, secs/3600, (secs%3600)/60, secs%60)
}

func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, errInvalidDuration
	}
	const maxSecs = int64(MaxDuration / time.Second)
	var secs int64
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, errInvalidDuration
		}
		if n > maxSecs || secs > maxSecs/60 {
			return 0, errDurationTooLong
		}
		if secs = secs*60 + n; secs > maxSecs {
			return 0, errDurationTooLong
		}
	}
	return Duration(time.Duration(secs) * time.Second), nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = 0
		return nil
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err == nil {
		if secs < 0 {
			return errInvalidDuration
		}
		if secs > MaxDuration.Seconds() {
			return errDurationTooLong
		}
		*d = Duration(time.Duration(secs * float64(time.Second)).Round(time.Second))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errInvalidDuration
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Duration) Value() (driver.Value, error) {
	return int64(time.Duration(d) / time.Second), nil
}

func (d *Duration) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = 0
	case int64:
		*d = Duration(time.Duration(v) * time.Second)
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return errors.Wrap(err, "scanning duration")
		}
		*d = Duration(time.Duration(n) * time.Second)
	default:
		return errors.Errorf("cannot scan %T into Duration", src)
	}
	return nil
}

// Date is a calendar day, encoded as "YYYY-MM-DD" in JSON.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" || string(data) == `""` {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errInvalidDate
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return errInvalidDate
	}
	d.Time = t
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}

func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		d.Time = time.Time{}
	case time.Time:
		d.Time = time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
	default:
		return errors.Errorf("cannot scan %T into Date", src)
	}
	return nil
}
