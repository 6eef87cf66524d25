package report

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// RequiredField is one input the model recommends collecting before a
// section can be drafted.
type RequiredField struct {
	Name        string `json:"name"`
	Unit        string `json:"unit"`
	Years       []int  `json:"years"`
	Description string `json:"description"`
}

var (
	itemRe  = regexp.MustCompile(`^\d+\.\s+\*{2,3}(.+?)\*{2,3}`)
	splitRe = regexp.MustCompile(`[,\s]+`)
)

// ParseFields extracts structured fields from the model's markdown list.
// Item names arrive as numbered bold lines; unit, years, and description
// follow as labelled lines. Malformed lines are skipped, never fatal.
func ParseFields(markdown string) []RequiredField {
	var (
		out     []RequiredField
		current *RequiredField
	)

	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)

		if m := itemRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				out = append(out, *current)
			}
			current = &RequiredField{Name: strings.TrimSpace(m[1]), Years: []int{}}
			continue
		}
		if current == nil {
			continue
		}

		switch {
		case hasLabel(line, "unit"):
			current.Unit = labelValue(line)
		case hasLabel(line, "years"), hasLabel(line, "year"):
			current.Years = parseYears(labelValue(line))
		case hasLabel(line, "description"):
			current.Description = labelValue(line)
		}
	}
	if current != nil {
		out = append(out, *current)
	}
	return out
}

// hasLabel reports whether the line carries the given label before a colon,
// tolerating list dashes and bold markers.
func hasLabel(line, label string) bool {
	head, _, ok := strings.Cut(line, ":")
	if !ok {
		return false
	}
	head = strings.ToLower(strings.Trim(head, "-* \t"))
	return strings.Contains(head, label)
}

func labelValue(line string) string {
	_, val, _ := strings.Cut(line, ":")
	return strings.Trim(strings.TrimSpace(val), "*")
}

// parseYears expands year lists and ranges: "2021, 2023" and "2021~2023"
// (or "2021-2023") both work. Duplicates collapse; output is ascending.
func parseYears(raw string) []int {
	seen := map[int]bool{}
	for _, part := range splitRe.Split(raw, -1) {
		if part == "" {
			continue
		}
		sep := ""
		switch {
		case strings.Contains(part, "~"):
			sep = "~"
		case strings.Count(part, "-") == 1 && !strings.HasPrefix(part, "-"):
			sep = "-"
		}
		if sep != "" {
			bounds := strings.SplitN(part, sep, 2)
			start, err1 := strconv.Atoi(strings.TrimSpace(bounds[0]))
			end, err2 := strconv.Atoi(strings.TrimSpace(bounds[1]))
			if err1 != nil || err2 != nil || end < start {
				continue
			}
			for y := start; y <= end; y++ {
				seen[y] = true
			}
			continue
		}
		if y, err := strconv.Atoi(part); err == nil {
			seen[y] = true
		}
	}

	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
