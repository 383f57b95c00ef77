package document

import "unicode/utf16"

// utf16Len returns the length of s in UTF-16 code units, the unit the wire
// protocol and every Position/column use end to end.
func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// utf16Slice returns the substring of s spanning UTF-16 code units
// [start, end), clamping both bounds into [0, utf16Len(s)].
func utf16Slice(s string, start, end int) string {
	units := utf16.Encode([]rune(s))
	n := len(units)
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > n {
		start = n
	}
	if end < start {
		end = start
	}
	return string(utf16.Decode(units[start:end]))
}

// utf16Insert inserts text into s at UTF-16 offset at, clamped to [0, len].
func utf16Insert(s string, at int, text string) string {
	n := utf16Len(s)
	if at < 0 {
		at = 0
	}
	if at > n {
		at = n
	}
	return utf16Slice(s, 0, at) + text + utf16Slice(s, at, n)
}

// utf16Delete removes length UTF-16 units starting at offset start, clamping
// at the end of the string exactly as the apply engine requires.
func utf16Delete(s string, start, length int) string {
	n := utf16Len(s)
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end := start + length
	if end > n {
		end = n
	}
	if end < start {
		end = start
	}
	return utf16Slice(s, 0, start) + utf16Slice(s, end, n)
}
