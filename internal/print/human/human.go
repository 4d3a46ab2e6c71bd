// Package human provides types formatting human-friendly representations of
// file sizes, and parsing and formatting permission bits and paths.
//
// Modes and paths are used both as flag values on the command line and as
// fields of the configuration file, for example:
//
//	type writeConfig struct {
//		Mode Nullable[human.Mode] `yaml:"mode"`
//	}
//	...
//	fmt.Println(human.Bytes(size)) // 1.5 KiB
package human

import (
	"fmt"
	"strings"
)

type suffix byte

func (c suffix) trim(s string) string {
	for len(s) > 0 && s[len(s)-1] == byte(c) {
		s = s[:len(s)-1]
	}
	return s
}

func ftoa(value, scale float64) string {
	var format string

	if value == 0 {
		return "0"
	}

	if value < 0 {
		return "-" + ftoa(-value, scale)
	}

	switch {
	case (value / scale) >= 100:
		format = "%.0f"
	case (value / scale) >= 10:
		format = "%.1f"
	case scale > 1:
		format = "%.2f"
	default:
		format = "%.3f"
	}

	s := fmt.Sprintf(format, value/scale)
	if strings.Contains(s, ".") {
		s = suffix('0').trim(s)
		s = suffix('.').trim(s)
	}
	return s
}

func printError(verb rune, typ, val any) string {
	return fmt.Sprintf("%%!%c(%T=%v)", verb, typ, val)
}
