// Package summary renders a fixed-width table of planned resources.
package summary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/planspectre/internal/plan"
)

// Column widths never depend on content so output is byte-stable.
const (
	typeWidth  = 40
	countWidth = 5
	namesWidth = 60

	// DefaultNameLimit is how many names a row shows before "(+K more)".
	DefaultNameLimit = 3
)

// ResourceSummary counts resources by type.
type ResourceSummary struct {
	SummaryText        string              `json:"summary_text"`
	TotalResources     int                 `json:"total_resources"`
	ResourceTypesCount int                 `json:"resource_types_count"`
	ResourceBreakdown  map[string][]string `json:"resource_breakdown"`
}

// Render summarises resources with the default name limit.
func Render(resources []plan.Resource) ResourceSummary {
	return RenderWithLimit(resources, DefaultNameLimit)
}

// RenderWithLimit summarises resources showing at most limit names per
// row. The breakdown always keeps every name.
func RenderWithLimit(resources []plan.Resource, limit int) ResourceSummary {
	if limit < 1 {
		limit = DefaultNameLimit
	}

	seen := make(map[string]struct{}, len(resources))
	breakdown := make(map[string][]string)
	for _, r := range resources {
		if _, dup := seen[r.Address]; dup {
			continue
		}
		seen[r.Address] = struct{}{}
		breakdown[r.Type] = append(breakdown[r.Type], r.Name)
	}

	types := make([]string, 0, len(breakdown))
	for t := range breakdown {
		types = append(types, t)
	}
	sort.Strings(types)

	var sb strings.Builder
	writeRow(&sb, "RESOURCE TYPE", "COUNT", "NAMES")
	sb.WriteString(strings.Repeat("-", typeWidth))
	sb.WriteString(" ")
	sb.WriteString(strings.Repeat("-", countWidth))
	sb.WriteString(" ")
	sb.WriteString(strings.Repeat("-", namesWidth))
	sb.WriteString("\n")
	for _, t := range types {
		names := breakdown[t]
		writeRow(&sb, t, fmt.Sprintf("%d", len(names)), displayNames(names, limit))
	}
	fmt.Fprintf(&sb, "\nTotal: %d resources across %d types\n", len(seen), len(types))

	return ResourceSummary{
		SummaryText:        sb.String(),
		TotalResources:     len(seen),
		ResourceTypesCount: len(types),
		ResourceBreakdown:  breakdown,
	}
}

func writeRow(sb *strings.Builder, typ, count, names string) {
	line := fmt.Sprintf("%-*s %*s %-*s",
		typeWidth, shorten(typ, typeWidth),
		countWidth, shorten(count, countWidth),
		namesWidth, shorten(names, namesWidth))
	sb.WriteString(strings.TrimRight(line, " "))
	sb.WriteString("\n")
}

// displayNames joins up to limit names. The "(+K more)" marker is never
// truncated; only the joined prefix is shortened to make room for it.
func displayNames(names []string, limit int) string {
	if len(names) <= limit {
		return strings.Join(names, ", ")
	}
	marker := fmt.Sprintf("(+%d more)", len(names)-limit)
	prefix := shorten(strings.Join(names[:limit], ", "), namesWidth-len(marker)-1)
	return prefix + " " + marker
}

// shorten truncates s to at most max runes, ending in "..." when cut.
func shorten(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
