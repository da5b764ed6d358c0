package layout

import (
	"sort"
	"strings"
)

// NaturalLess orders labels so that embedded numbers compare numerically:
// "Section 2" sorts before "Section 10", "A1" before "A2" before "A10".
func NaturalLess(a, b string) bool {
	return NaturalCompare(a, b) < 0
}

// NaturalCompare returns -1, 0 or 1. Labels are split into alternating runs of
// digits and non-digits; non-digit runs compare lexicographically, digit runs
// numerically. A label that is a strict prefix of another sorts first. Labels
// that are equal under those rules (e.g. "A01" and "A1") fall back to a plain
// string comparison so the order stays total.
func NaturalCompare(a, b string) int {
	ca, cb := chunks(a), chunks(b)
	for i := 0; i < len(ca) && i < len(cb); i++ {
		x, y := ca[i], cb[i]
		var c int
		if isDigits(x) && isDigits(y) {
			c = compareNumeric(x, y)
		} else {
			c = strings.Compare(x, y)
		}
		if c != 0 {
			return c
		}
	}
	switch {
	case len(ca) < len(cb):
		return -1
	case len(ca) > len(cb):
		return 1
	}
	return strings.Compare(a, b)
}

// SortNatural sorts labels in place in natural order
func SortNatural(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		return NaturalLess(labels[i], labels[j])
	})
}

func chunks(s string) []string {
	var out []string
	start := 0
	for i := 1; i <= len(s); i++ {
		if i == len(s) || isDigit(s[i]) != isDigit(s[start]) {
			out = append(out, s[start:i])
			start = i
		}
	}
	return out
}

// compareNumeric compares two digit runs of arbitrary length without parsing them
func compareNumeric(x, y string) int {
	x = strings.TrimLeft(x, "0")
	y = strings.TrimLeft(y, "0")
	if len(x) != len(y) {
		if len(x) < len(y) {
			return -1
		}
		return 1
	}
	return strings.Compare(x, y)
}

func isDigits(s string) bool {
	return s != "" && isDigit(s[0])
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
