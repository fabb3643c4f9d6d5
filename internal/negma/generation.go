package negma

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Generation is one numbered snapshot of a profile.
type Generation struct {
	ID        int
	CreatedAt time.Time
	Current   bool
	// StorePath is the generation's store path when the listing reports it
	// (home-manager does, nix-env does not).
	StorePath string
}

// ParseWarning records a listing line that was skipped or adjusted.
type ParseWarning struct {
	Line int // 1-based line number in the raw listing
	Text string
	Err  error
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("line %d: %v (%q)", w.Line, w.Err, w.Text)
}

// Listing is the parsed form of a generation listing.
// Generations are sorted by ID ascending, IDs are unique and at most one is current.
type Listing struct {
	Generations []Generation
	Warnings    []ParseWarning
}

// Current returns the generation marked current, if any.
func (l *Listing) Current() (Generation, bool) {
	for _, g := range l.Generations {
		if g.Current {
			return g, true
		}
	}
	return Generation{}, false
}

var (
	errBadID        = errors.New("invalid generation id")
	errBadTimestamp = errors.New("invalid timestamp")
	errShortLine    = errors.New("unrecognized line format")
	errDuplicateID  = errors.New("duplicate generation id")
	errExtraCurrent = errors.New("more than one generation marked current")
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// homeLineRe matches `home-manager generations` output:
//
//	2024-01-01 12:00 : id 42 -> /nix/store/...-home-manager-generation (current)
var homeLineRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+(\d{1,2}:\d{2}(?::\d{2})?)\s*:\s*id\s+(\S+)\s*->\s*(\S+)(.*)$`)

// ParseGenerations parses a raw listing for the given profile kind.
// Lines that do not parse are skipped and reported as warnings. A listing
// with no non-blank lines is valid and empty; a listing whose non-blank lines
// all fail to parse returns ErrEmptyListing.
func ParseGenerations(raw string, kind ProfileKind) (*Listing, error) {
	parse, err := lineParser(kind)
	if err != nil {
		return nil, err
	}

	listing := &Listing{}
	lineOf := make(map[int]int)
	nonBlank := 0

	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		nonBlank++

		gen, err := parse(trimmed)
		if err != nil {
			listing.Warnings = append(listing.Warnings, ParseWarning{Line: i + 1, Text: trimmed, Err: err})
			continue
		}
		if _, dup := lineOf[gen.ID]; dup {
			listing.Warnings = append(listing.Warnings, ParseWarning{Line: i + 1, Text: trimmed, Err: errDuplicateID})
			continue
		}
		lineOf[gen.ID] = i + 1
		listing.Generations = append(listing.Generations, gen)
	}

	if nonBlank > 0 && len(listing.Generations) == 0 {
		return listing, ErrEmptyListing
	}

	sort.Slice(listing.Generations, func(i, j int) bool {
		return listing.Generations[i].ID < listing.Generations[j].ID
	})

	// Keep only the newest current marker.
	foundCurrent := false
	for i := len(listing.Generations) - 1; i >= 0; i-- {
		g := &listing.Generations[i]
		if !g.Current {
			continue
		}
		if foundCurrent {
			g.Current = false
			listing.Warnings = append(listing.Warnings, ParseWarning{
				Line: lineOf[g.ID],
				Text: fmt.Sprintf("generation %d", g.ID),
				Err:  errExtraCurrent,
			})
			continue
		}
		foundCurrent = true
	}

	return listing, nil
}

func lineParser(kind ProfileKind) (func(string) (Generation, error), error) {
	switch kind {
	case SystemProfileKind:
		return SystemProfile{}.parseLine, nil
	case HomeProfileKind:
		return HomeProfile{}.parseLine, nil
	default:
		return nil, fmt.Errorf("unknown profile kind: %v", kind)
	}
}

// parseSystemLine parses `nix-env --list-generations` output:
//
//	42   2024-01-01 12:00:00   (current)
//
// The time of day and the current marker are optional; unknown trailing
// fields are ignored.
func parseSystemLine(line string) (Generation, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Generation{}, errShortLine
	}

	id, err := parseID(fields[0])
	if err != nil {
		return Generation{}, err
	}

	stamp := fields[1]
	rest := fields[2:]
	if len(rest) > 0 && strings.Contains(rest[0], ":") {
		stamp += " " + rest[0]
		rest = rest[1:]
	}
	createdAt, err := parseTimestamp(stamp)
	if err != nil {
		return Generation{}, err
	}

	gen := Generation{ID: id, CreatedAt: createdAt}
	for _, f := range rest {
		if isCurrentMarker(f) {
			gen.Current = true
		}
	}
	return gen, nil
}

func parseHomeLine(line string) (Generation, error) {
	m := homeLineRe.FindStringSubmatch(line)
	if m == nil {
		return Generation{}, errShortLine
	}

	id, err := parseID(m[3])
	if err != nil {
		return Generation{}, err
	}
	createdAt, err := parseTimestamp(m[1] + " " + m[2])
	if err != nil {
		return Generation{}, err
	}

	gen := Generation{ID: id, CreatedAt: createdAt, StorePath: m[4]}
	for _, f := range strings.Fields(m[5]) {
		if isCurrentMarker(f) {
			gen.Current = true
		}
	}
	return gen, nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: %q", errBadID, s)
	}
	return id, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", errBadTimestamp, s)
}

func isCurrentMarker(field string) bool {
	return strings.EqualFold(strings.Trim(field, "()[]"), "current")
}
