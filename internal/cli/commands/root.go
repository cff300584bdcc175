package commands

import (
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	env := &environment{}

	rootCmd := &cobra.Command{
		Use:   "metacheck",
		Short: "Grade metadata documents against their declared schemas",
		Long: color.CyanString(`metacheck - metadata compliance classifier

metacheck grades metadata documents field by field instead of failing them
outright. Every field ends up in one of six states:

  VALID     the value conforms to its declared shape
  PRESENT   a value exists but does not conform
  MISSING   a required value is absent
  OPTIONAL  an optional document is absent
  EXCLUDED  a document the record must not carry is absent
  CORRUPT   the document could not be read`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	env.bindFlags(rootCmd)

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewValidateCommand(env))
	rootCmd.AddCommand(NewKindsCommand(env))
	rootCmd.AddCommand(NewSchemaCommand(env))
	rootCmd.AddCommand(NewServeCommand(env))
	rootCmd.AddCommand(NewReportsCommand(env))
	rootCmd.AddCommand(NewInitCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the metacheck version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			out := cmd.OutOrStdout()

			titleColor.Fprint(out, "metacheck version: ")
			cmd.Println(Version)

			titleColor.Fprint(out, "Git commit: ")
			cmd.Println(GitCommit)

			titleColor.Fprint(out, "Build date: ")
			cmd.Println(BuildDate)

			titleColor.Fprint(out, "Go version: ")
			cmd.Println(goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
