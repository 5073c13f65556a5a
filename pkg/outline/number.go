package outline

import (
	"strconv"
	"strings"
)

// numberFrame is one open branch of the implicit outline tree.
type numberFrame struct {
	level    int
	counters []int
}

// Number assigns ListNo to every heading in place.
//
// Each heading copies the counters of the nearest open heading at the same or a shallower
// level, then increments its own level's slot. Frames deeper than the current heading are
// closed first. The list number is the counter array with leading and trailing zero runs
// trimmed, so interior gaps from skipped levels stay visible ("1.0.1").
//
// When a heading is shallower than every open frame the stack empties and a new root
// starts. That root continues after the previous leading segment instead of restarting
// at 1, which keeps list numbers unique for documents whose first heading is not the
// shallowest one.
func Number(headings []Heading) {
	maxLevel := 0
	for _, h := range headings {
		if h.Level > maxLevel {
			maxLevel = h.Level
		}
	}

	var stack []numberFrame
	lead := 0
	for i := range headings {
		level := headings[i].Level

		for len(stack) > 0 && stack[len(stack)-1].level > level {
			stack = stack[:len(stack)-1]
		}

		counters := make([]int, maxLevel)
		if len(stack) == 0 {
			counters[level-1] = lead
		} else {
			copy(counters, stack[len(stack)-1].counters)
		}
		counters[level-1]++
		stack = append(stack, numberFrame{level: level, counters: counters})

		trimmed := TrimZeros(counters)
		headings[i].ListNo = joinCounters(trimmed)
		lead = trimmed[0]
	}
}

// TrimZeros drops the leading and trailing zero runs of counters. Interior zeros are kept.
func TrimZeros(counters []int) []int {
	start := 0
	for start < len(counters) && counters[start] == 0 {
		start++
	}
	end := len(counters)
	for end > start && counters[end-1] == 0 {
		end--
	}
	return counters[start:end]
}

func joinCounters(counters []int) string {
	parts := make([]string, len(counters))
	for i, c := range counters {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ".")
}
