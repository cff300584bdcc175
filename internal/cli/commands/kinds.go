package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/conduit-lang/metadata-validator/internal/cli/ui"
	"github.com/spf13/cobra"
)

type kindInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Presence string `json:"presence"`
	Fields   int    `json:"fields"`
}

// NewKindsCommand creates the kinds command
func NewKindsCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the registered document kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := env.setup(cmd); err != nil {
				return err
			}

			var kinds []kindInfo
			for _, name := range env.registry.Kinds() {
				entry, _ := env.registry.Get(name)
				info := kindInfo{
					Name:     name,
					Presence: entry.Presence.String(),
					Fields:   len(entry.Fields),
				}
				if entry.Type != nil {
					info.Type = entry.Type.Name()
				}
				kinds = append(kinds, info)
			}

			if env.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), kinds)
			}

			table := ui.NewTable(cmd.OutOrStdout(), env.cfg.Output.NoColor,
				ui.Column{Title: "KIND"},
				ui.Column{Title: "TYPE"},
				ui.Column{Title: "PRESENCE"},
				ui.Column{Title: "FIELDS", Numeric: true})
			for _, k := range kinds {
				table.Row(k.Name, k.Type, k.Presence, strconv.Itoa(k.Fields))
			}
			return table.Flush()
		},
	}
}

// NewSchemaCommand creates the schema command
func NewSchemaCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "schema KIND",
		Short: "Show the field shapes declared for a kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := env.setup(cmd); err != nil {
				return err
			}

			kind := args[0]
			if err := env.checkKind(cmd, kind); err != nil {
				return err
			}
			entry, _ := env.registry.Get(kind)

			names := make([]string, 0, len(entry.Fields))
			shapes := make(map[string]string, len(entry.Fields))
			for name, d := range entry.Fields {
				names = append(names, name)
				shapes[name] = d.String()
			}
			sort.Strings(names)

			if env.jsonOutput() {
				out := map[string]interface{}{
					"kind":     kind,
					"presence": entry.Presence.String(),
					"fields":   shapes,
				}
				if entry.Type != nil {
					out["type"] = entry.Type.Name()
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			noColor := env.cfg.Output.NoColor
			title := kind
			if entry.Type != nil {
				title = fmt.Sprintf("%s (%s)", kind, entry.Type.Name())
			}
			ui.Header(cmd.OutOrStdout(), title, noColor)

			table := ui.NewTable(cmd.OutOrStdout(), noColor, ui.Column{Title: "FIELD"}, ui.Column{Title: "SHAPE"})
			for _, name := range names {
				table.Row(name, shapes[name])
			}
			return table.Flush()
		},
	}
}
