package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	floorRe     = regexp.MustCompile(`^(?i)(B|-)?\s*(\d+)\s*(?:F|FL)?$`)
	groundRe    = regexp.MustCompile(`^(?i)(G|GF|GROUND)$`)
	spotNumRe   = regexp.MustCompile(`^[A-Z0-9]+(?:-[A-Z0-9]+)*$`)
	spaceRe     = regexp.MustCompile(`\s+`)
	numPrefixRe = regexp.MustCompile(`^(?i)(?:#|NO\.\s*)`)
)

// SpotKey is the normalised identity of a physical parking spot inside a building.
type SpotKey struct {
	Floor  string // canonical floor label, "3" or "B1"
	Number string // canonical spot number, upper case
	Level  int    // numeric floor, negative below ground
}

// Label is the spot number shown on a listing, "<floor>-<number>".
func (k SpotKey) Label() string {
	return fmt.Sprintf("%s-%s", k.Floor, k.Number)
}

// ParseSpotKey normalises a user supplied floor and spot number.
func ParseSpotKey(floor, number string) (SpotKey, error) {
	level, floorLabel, err := parseFloor(floor)
	if err != nil {
		return SpotKey{}, err
	}

	n := strings.TrimSpace(number)
	n = numPrefixRe.ReplaceAllString(n, "")
	n = strings.ToUpper(spaceRe.ReplaceAllString(n, ""))
	if n == "" || !spotNumRe.MatchString(n) {
		return SpotKey{}, fmt.Errorf("unable to parse spot number: %q", number)
	}

	return SpotKey{Floor: floorLabel, Number: n, Level: level}, nil
}

func parseFloor(raw string) (int, string, error) {
	s := strings.TrimSpace(raw)
	if groundRe.MatchString(s) {
		return 0, "0", nil
	}

	m := floorRe.FindStringSubmatch(s)
	if m == nil {
		return 0, "", fmt.Errorf("unable to parse floor: %q", raw)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, "", fmt.Errorf("unable to parse floor: %q", raw)
	}

	// "-1" and "B1" are the same basement level
	if m[1] != "" {
		if n == 0 {
			return 0, "", fmt.Errorf("unable to parse floor: %q", raw)
		}
		return -n, "B" + strconv.Itoa(n), nil
	}
	return n, strconv.Itoa(n), nil
}
