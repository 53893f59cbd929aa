package exporter

import (
	"regexp"
	"strconv"
)

// ParseUserID returns the number that directly follows the first '#' in
// name, or 0 when there is none. "Door#12.001" gives 12.
func ParseUserID(name string) uint32 {
	start := -1
	for i, r := range name {
		if r == '#' {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return 0
	}
	end := start
	for end < len(name) && name[end] >= '0' && name[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	id, err := strconv.ParseUint(name[start:end], 10, 32)
	if err != nil {
		return 0
	}
	return uint32(id)
}

var actionNameRe = regexp.MustCompile(`#A(\d+)E(\d+)#(\d+)`)

// ParseActionName decodes names of the form "<name>#A<armature id>E<end frame>#<action id>",
// e.g. "walk#A1E40#7". Actions named otherwise are not bound to any armature.
func ParseActionName(name string) (armatureID uint32, endFrame int, actionID uint32, ok bool) {
	m := actionNameRe.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, 0, false
	}
	a, err1 := strconv.ParseUint(m[1], 10, 32)
	e, err2 := strconv.Atoi(m[2])
	id, err3 := strconv.ParseUint(m[3], 10, 32)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, false
	}
	return uint32(a), e, uint32(id), true
}
