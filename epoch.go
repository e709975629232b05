package opal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/meeus/julian"
)

const (
	// ModJulianOffset is the offset between the Julian Date and the modified
	// Julian convention of the heritage mission-analysis scenario files
	// (JD 2430000.0, *not* the astronomical MJD).
	ModJulianOffset = 2430000.0
	// MJDOffset is the standard astronomical Modified Julian Date offset.
	MJDOffset = 2400000.5
	// gregorianFormat is the Gregorian epoch layout of scenario files.
	gregorianFormat = "02 Jan 2006 15:04:05.000"
)

// EpochFormat defines the closed set of supported epoch input formats.
type EpochFormat uint8

const (
	// UTCModJulian is JD - 2430000.0 on the UTC scale.
	UTCModJulian EpochFormat = iota + 1
	// UTCMJD is the astronomical MJD, JD - 2400000.5, on the UTC scale.
	UTCMJD
	// UTCGregorian is a Gregorian calendar date on the UTC scale.
	UTCGregorian
)

func (f EpochFormat) String() string {
	switch f {
	case UTCModJulian:
		return "UTCModJulian"
	case UTCMJD:
		return "UTCMJD"
	case UTCGregorian:
		return "UTCGregorian"
	}
	panic("cannot stringify unknown epoch format")
}

// EpochFormatFromString returns the epoch format from its scenario name.
func EpochFormatFromString(name string) (EpochFormat, error) {
	switch strings.ToLower(name) {
	case "utcmodjulian":
		return UTCModJulian, nil
	case "utcmjd":
		return UTCMJD, nil
	case "utcgregorian":
		return UTCGregorian, nil
	default:
		return EpochFormat(0), NewConfigError("epochformat", "undefined epoch format '%s'", name)
	}
}

// Time2ModJulian converts a time to the heritage modified Julian date.
func Time2ModJulian(t time.Time) float64 {
	return julian.TimeToJD(t.UTC()) - ModJulianOffset
}

// ModJulian2Time converts a heritage modified Julian date to a time.
func ModJulian2Time(mjd float64) time.Time {
	return julian.JDToTime(mjd + ModJulianOffset).UTC()
}

// Time2MJD converts a time to the astronomical Modified Julian Date.
func Time2MJD(t time.Time) float64 {
	return julian.TimeToJD(t.UTC()) - MJDOffset
}

// MJD2Time converts an astronomical Modified Julian Date to a time.
func MJD2Time(mjd float64) time.Time {
	return julian.JDToTime(mjd + MJDOffset).UTC()
}

// ParseEpoch parses an epoch value in the provided format. All returned times
// are on the UTC scale, as are all ephemerides.
func ParseEpoch(format EpochFormat, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	switch format {
	case UTCModJulian, UTCMJD:
		mjd, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return time.Time{}, NewConfigError("epoch", "cannot parse '%s' as a modified Julian date", value)
		}
		if format == UTCModJulian {
			return ModJulian2Time(mjd), nil
		}
		return MJD2Time(mjd), nil
	case UTCGregorian:
		dt, err := time.Parse(gregorianFormat, value)
		if err != nil {
			return time.Time{}, NewConfigError("epoch", "cannot parse '%s' as '%s'", value, gregorianFormat)
		}
		return dt.UTC(), nil
	default:
		return time.Time{}, NewConfigError("epochformat", fmt.Sprintf("unknown format %d", format))
	}
}
