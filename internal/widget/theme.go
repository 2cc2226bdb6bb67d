package widget

import (
	"fmt"
	"strconv"
	"strings"
)

// DeriveAccent shifts every channel of a #RRGGBB (or #RGB) color by amount,
// clamping each channel to [0, 255]. Negative amounts darken. Input that is
// not a hex color is returned unchanged.
func DeriveAccent(baseColorHex string, amount int) string {
	r, g, b, ok := parseHexColor(baseColorHex)
	if !ok {
		return baseColorHex
	}
	return fmt.Sprintf("#%02X%02X%02X", clampChannel(r+amount), clampChannel(g+amount), clampChannel(b+amount))
}

func parseHexColor(s string) (r, g, b int, ok bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF), true
}

func isHexColor(s string) bool {
	_, _, _, ok := parseHexColor(s)
	return ok && strings.HasPrefix(strings.TrimSpace(s), "#")
}

func clampChannel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
