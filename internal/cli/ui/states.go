package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/conduit-lang/metadata-validator/internal/state"
	"github.com/conduit-lang/metadata-validator/internal/validator"
	"github.com/fatih/color"
)

// StateColor returns the color a state is printed in
func StateColor(s state.MetadataState) *color.Color {
	switch s {
	case state.Valid:
		return color.New(color.FgGreen)
	case state.Optional, state.Excluded:
		return color.New(color.FgHiBlack)
	case state.Present:
		return color.New(color.FgYellow)
	case state.Missing:
		return color.New(color.FgRed)
	case state.Corrupt:
		return color.New(color.FgRed, color.Bold)
	default:
		return nil
	}
}

// FormatState renders a state as its upper-case label
func FormatState(s state.MetadataState, noColor bool) string {
	label := strings.ToUpper(s.String())
	c := StateColor(s)
	if c == nil {
		return label
	}
	if noColor {
		c.DisableColor()
	}
	return c.Sprint(label)
}

// RenderReport prints the core state, a field table and a summary line
func RenderReport(w io.Writer, r *validator.Report, noColor bool) {
	Header(w, fmt.Sprintf("%s (%s)", r.Kind, r.ID), noColor)

	WriteDetails(w, noColor, Detail{Label: "core", Value: FormatState(r.Core, noColor)})

	fmt.Fprintln(w)
	RenderFields(w, r.Fields, noColor)
}

// RenderFields prints a field table sorted by name followed by a summary line
func RenderFields(w io.Writer, fields map[string]state.MetadataState, noColor bool) {
	if len(fields) > 0 {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)

		table := NewTable(w, noColor, Column{Title: "FIELD"}, Column{Title: "STATE", State: true})
		for _, name := range names {
			table.Row(name, fields[name].String())
		}
		table.Flush()
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, FormatSummary(state.Summarize(fields), noColor))
}

// RenderMetadataReport prints one row per kind
func RenderMetadataReport(w io.Writer, m *validator.MetadataReport, noColor bool) {
	Header(w, fmt.Sprintf("metadata (%s)", m.ID), noColor)

	kinds := make([]string, 0, len(m.Reports))
	for kind := range m.Reports {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	table := NewTable(w, noColor, Column{Title: "KIND"}, Column{Title: "CORE", State: true}, Column{Title: "FIELDS"})
	for _, kind := range kinds {
		r := m.Reports[kind]
		fields := "-"
		if len(r.Fields) > 0 {
			summary := r.Summary()
			fields = fmt.Sprintf("%d/%d compliant", summary.Acceptable(), summary.Total())
		}
		table.Row(kind, r.Core.String(), fields)
	}
	table.Flush()
}

// RenderReportList prints stored reports newest first
func RenderReportList(w io.Writer, reports []*validator.Report, noColor bool) {
	table := NewTable(w, noColor, Column{Title: "ID"}, Column{Title: "KIND"}, Column{Title: "CORE", State: true}, Column{Title: "CREATED"})
	for _, r := range reports {
		table.Row(r.ID.String(), r.Kind, r.Core.String(), r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	table.Flush()
}

// FormatSummary renders counts per state in lattice order, skipping zeros
func FormatSummary(s state.Summary, noColor bool) string {
	var parts []string
	for _, st := range state.All() {
		if n := s[st]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, FormatState(st, noColor)))
		}
	}
	if len(parts) == 0 {
		return "no fields"
	}
	return fmt.Sprintf("%d/%d compliant: %s", s.Acceptable(), s.Total(), strings.Join(parts, ", "))
}
