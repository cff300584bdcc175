package commands

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/conduit-lang/metadata-validator/internal/cache"
	"github.com/conduit-lang/metadata-validator/internal/cli/config"
	"github.com/conduit-lang/metadata-validator/internal/cli/ui"
	"github.com/conduit-lang/metadata-validator/internal/store"
	"github.com/spf13/cobra"
)

type initOptions struct {
	path     string
	defaults bool
	force    bool
}

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a metacheck.yaml configuration file",
		Long: `Write a metacheck.yaml configuration file.

You are prompted for the output format, cache backend, report store and
server address. Use --defaults to skip the prompts.

Examples:
  metacheck init
  metacheck init --defaults --path /etc/metacheck.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.path, "path", config.FileName, "Where to write the config file")
	cmd.Flags().BoolVar(&opts.defaults, "defaults", false, "Write the defaults without prompting")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Overwrite an existing file")

	return cmd
}

func runInit(cmd *cobra.Command, opts *initOptions) error {
	if _, err := os.Stat(opts.path); err == nil && !opts.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", opts.path)
	}

	cfg := config.Default()
	if !opts.defaults {
		if err := askConfig(cfg); err != nil {
			return err
		}
	}

	if err := config.Save(opts.path, cfg); err != nil {
		return err
	}

	ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("Wrote %s", opts.path), cfg.Output.NoColor)
	return nil
}

func askConfig(cfg *config.Config) error {
	questions := []*survey.Question{
		{
			Name: "format",
			Prompt: &survey.Select{
				Message: "Output format:",
				Options: []string{config.FormatTable, config.FormatJSON},
				Default: cfg.Output.Format,
			},
		},
		{
			Name: "cache",
			Prompt: &survey.Select{
				Message: "Report cache:",
				Options: []string{cache.BackendMemory, cache.BackendRedis, cache.BackendNone},
				Default: cfg.Cache.Backend,
			},
		},
		{
			Name: "address",
			Prompt: &survey.Input{
				Message: "Server listen address:",
				Default: cfg.Server.Address,
			},
			Validate: survey.Required,
		},
		{
			Name: "store",
			Prompt: &survey.Confirm{
				Message: "Store validation reports in a database?",
				Default: cfg.Store.Enabled,
			},
		},
	}

	answers := struct {
		Format  string
		Cache   string
		Address string
		Store   bool
	}{}
	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}

	cfg.Output.Format = answers.Format
	cfg.Cache.Backend = answers.Cache
	cfg.Server.Address = answers.Address
	cfg.Store.Enabled = answers.Store

	if cfg.Cache.Backend == cache.BackendRedis {
		prompt := &survey.Input{
			Message: "Redis address:",
			Default: cfg.Cache.Redis.Addr,
		}
		if err := survey.AskOne(prompt, &cfg.Cache.Redis.Addr, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	if cfg.Store.Enabled {
		storeQuestions := []*survey.Question{
			{
				Name: "driver",
				Prompt: &survey.Select{
					Message: "Database driver:",
					Options: store.Drivers(),
					Default: cfg.Store.Driver,
				},
			},
			{
				Name: "dsn",
				Prompt: &survey.Input{
					Message: "Data source name:",
					Default: cfg.Store.DSN,
					Help:    "A file path for sqlite3, a connection URL for postgres and pgx",
				},
				Validate: survey.Required,
			},
		}

		storeAnswers := struct {
			Driver string
			DSN    string `survey:"dsn"`
		}{}
		if err := survey.Ask(storeQuestions, &storeAnswers); err != nil {
			return err
		}
		cfg.Store.Driver = storeAnswers.Driver
		cfg.Store.DSN = storeAnswers.DSN
	}

	return nil
}
