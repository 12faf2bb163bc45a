package course_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhoelito123/PyStart/core/course"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    time.Duration
		wantErr bool
	}{
		{name: "null", data: `null`},
		{name: "hours minutes seconds", data: `"01:30:15"`, want: time.Hour + 30*time.Minute + 15*time.Second},
		{name: "minutes seconds", data: `"25:00"`, want: 25 * time.Minute},
		{name: "seconds", data: `90`, want: 90 * time.Second},
		{name: "fractional seconds are rounded", data: `1.6`, want: 2 * time.Second},
		{name: "upper bound", data: `"10000:00:00"`, want: course.MaxDuration},
		{name: "negative number", data: `-1`, wantErr: true},
		{name: "negative part", data: `"00:-1:00"`, wantErr: true},
		{name: "too many parts", data: `"1:00:00:00"`, wantErr: true},
		{name: "not a number", data: `"1h"`, wantErr: true},
		{name: "over the bound", data: `"10000:00:01"`, wantErr: true},
		{name: "huge hours", data: `"3000000:00:00"`, wantErr: true},
		{name: "hours that would wrap to a positive value", data: `"6000000:00:00"`, wantErr: true},
		{name: "huge minutes", data: `"00:99999999999999:00"`, wantErr: true},
		{name: "huge seconds", data: `"9223372036854775807"`, wantErr: true},
		{name: "huge number", data: `1e30`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d course.Duration
			err := json.Unmarshal([]byte(tt.data), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			if assert.NoError(t, err) {
				assert.Equal(t, tt.want, d.Std())
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	d, err := course.ParseDuration(" 00:45:00 ")
	assert.NoError(t, err)
	assert.Equal(t, "00:45:00", d.String())

	d, err = course.ParseDuration("")
	assert.NoError(t, err)
	assert.Zero(t, d)

	_, err = course.ParseDuration("6000000:00:00")
	assert.Error(t, err)
}
