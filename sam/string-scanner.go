package sam

import (
	"errors"
	"fmt"
)

// ErrMalformed is wrapped by all errors that report a syntactically
// invalid SAM line.
var ErrMalformed = errors.New("malformed SAM line")

/*
A StringScanner scans/parses ASCII strings representing lines in SAM
files.

The zero StringScanner is valid and empty.
*/
type StringScanner struct {
	index int
	data  string
	err   error
}

// Err returns the error that occurred during scanning/parsing.
func (sc *StringScanner) Err() error {
	return sc.err
}

// Reset initializes the scanner with the given string.
func (sc *StringScanner) Reset(s string) {
	sc.index = 0
	sc.data = s
	sc.err = nil
}

// Len returns the number of ASCII characters that still need to be
// scanned/parsed, or 0 if Err() would return a non-nil value.
func (sc *StringScanner) Len() int {
	if sc.err != nil {
		return 0
	}
	return len(sc.data) - sc.index
}

func (sc *StringScanner) fail(format string, args ...interface{}) {
	if sc.err == nil {
		sc.err = fmt.Errorf("%w: %v", ErrMalformed, fmt.Sprintf(format, args...))
	}
}

func (sc *StringScanner) readByteUntil(c byte) (b byte, found bool) {
	if sc.err != nil {
		return 0, false
	}
	start := sc.index
	if start >= len(sc.data) {
		sc.fail("unexpected end of line")
		return 0, false
	}
	next := start + 1
	if next >= len(sc.data) {
		sc.index = len(sc.data)
		return sc.data[start], false
	}
	if sc.data[next] != c {
		sc.fail("unexpected character %q", sc.data[next])
		return 0, false
	}
	sc.index = next + 1
	return sc.data[start], true
}

func (sc *StringScanner) readUntil(c byte) (s string, found bool) {
	if sc.err != nil {
		return "", false
	}
	start := sc.index
	for end := sc.index; end < len(sc.data); end++ {
		if sc.data[end] == c {
			sc.index = end + 1
			return sc.data[start:end], true
		}
	}
	sc.index = len(sc.data)
	return sc.data[start:], false
}
