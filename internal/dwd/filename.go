package dwd

import (
	"strconv"
	"strings"
	"time"
)

// composite filenames look like raa01-sf_10000-2107131650-dwd---bin.gz; the
// embedded timestamp is yyMMddHHmm.
const filenameTimeLayout = "0601021504"

// ParseFilenameTime extracts the embedded timestamp from a composite
// filename by stripping the known product affixes. ok=false means the name
// did not match the expected shape; callers treat such files as needing
// import (fail open) rather than silently dropping data.
func ParseFilenameTime(name string) (time.Time, bool) {
	trimmed := strings.TrimPrefix(name, "raa01-")
	trimmed = strings.TrimPrefix(trimmed, "sf")
	trimmed = strings.TrimPrefix(trimmed, "rw")
	trimmed = strings.TrimPrefix(trimmed, "_10000-")
	trimmed = strings.TrimSuffix(trimmed, ".gz")
	trimmed = strings.TrimSuffix(trimmed, "-dwd---bin")

	ts, err := time.Parse(filenameTimeLayout, trimmed)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// archiveMonth extracts the month from a historical bundle name such as
// SF-201907.tar.gz or SF200707.tar.gz.
func archiveMonth(name string, year int) (time.Month, bool) {
	s := strings.TrimSuffix(name, ".tar.gz")
	s = strings.TrimPrefix(s, "SF")
	s = strings.TrimPrefix(s, "RW")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimPrefix(s, strconv.Itoa(year))

	m, err := strconv.Atoi(s)
	if err != nil || m < 1 || m > 12 {
		return 0, false
	}
	return time.Month(m), true
}
