package position

import "unicode/utf16"

func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}
