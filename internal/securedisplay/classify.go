package securedisplay

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// FlagSecure is the window layout flag marking content as non-capturable.
const FlagSecure = 0x2000

const (
	flagsMarker = "fl="
	secureToken = "SECURE"

	// maxLineSize bounds a single dump line; window dumps can carry long
	// attribute lists.
	maxLineSize = 1 << 20
)

var hexWordPattern = regexp.MustCompile(`0x([0-9a-fA-F]+)`)

// HasSecureFlag reports whether a window dump line describes a window with
// the secure flag set. Only lines carrying a flags field ("fl=") qualify.
// The flag is recognised either as a SECURE token delimited by spaces or
// '|' or as any hex word on the line with FlagSecure set. Hex words that do
// not fit in 64 bits are skipped.
func HasSecureFlag(line string) bool {
	if !strings.Contains(line, flagsMarker) {
		return false
	}
	if hasSecureToken(line) {
		return true
	}
	for _, m := range hexWordPattern.FindAllStringSubmatch(line, -1) {
		flags, err := strconv.ParseUint(m[1], 16, 64)
		if err != nil {
			continue
		}
		if flags&FlagSecure != 0 {
			return true
		}
	}
	return false
}

// hasSecureToken finds SECURE as a whole flag name. "fl=SECURE" counts, so
// '=' is accepted as a left delimiter.
func hasSecureToken(line string) bool {
	for off := 0; off < len(line); {
		i := strings.Index(line[off:], secureToken)
		if i < 0 {
			return false
		}
		start := off + i
		end := start + len(secureToken)
		if isLeftDelim(line, start) && isRightDelim(line, end) {
			return true
		}
		off = start + 1
	}
	return false
}

func isLeftDelim(line string, i int) bool {
	if i == 0 {
		return true
	}
	switch line[i-1] {
	case ' ', '|', '=':
		return true
	}
	return false
}

func isRightDelim(line string, i int) bool {
	if i == len(line) {
		return true
	}
	switch line[i] {
	case ' ', '|':
		return true
	}
	return false
}

// scanDump reads r line by line and stops at the first secure line. It
// returns false with a nil error when the stream ends without a match.
func scanDump(r io.Reader) (bool, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	for scanner.Scan() {
		if HasSecureFlag(scanner.Text()) {
			return true, nil
		}
	}
	return false, scanner.Err()
}
