package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/conduit-lang/metadata-validator/internal/cache"
	"github.com/conduit-lang/metadata-validator/internal/cli/ui"
	"github.com/conduit-lang/metadata-validator/internal/document"
	"github.com/conduit-lang/metadata-validator/internal/state"
	"github.com/conduit-lang/metadata-validator/internal/store"
	"github.com/conduit-lang/metadata-validator/internal/validator"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ErrNotCompliant is returned by validate --strict when a document is not acceptable
var ErrNotCompliant = errors.New("metadata is not compliant")

type validateOptions struct {
	kind       string
	coreOnly   bool
	fieldsOnly bool
	metadata   bool
	strict     bool
}

// NewValidateCommand creates the validate command
func NewValidateCommand(env *environment) *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Grade metadata documents",
		Long: `Grade JSON or YAML metadata documents against their kind.

When --kind is omitted the kind is taken from the file name, so subject.json
is graded as a subject document. With --metadata each file is a whole record
whose top-level keys are kind names.

Examples:
  metacheck validate subject.json
  metacheck validate dd.yaml --kind data_description --fields-only
  metacheck validate metadata.json --metadata --strict`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, env, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.kind, "kind", "k", "", "Document kind (default: file name without extension)")
	cmd.Flags().BoolVar(&opts.coreOnly, "core-only", false, "Only grade the document as a whole")
	cmd.Flags().BoolVar(&opts.fieldsOnly, "fields-only", false, "Only grade individual fields")
	cmd.Flags().BoolVar(&opts.metadata, "metadata", false, "Treat each file as a complete metadata record")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail when any document is not compliant")
	cmd.MarkFlagsMutuallyExclusive("core-only", "fields-only", "metadata")
	cmd.MarkFlagsMutuallyExclusive("kind", "metadata")

	return cmd
}

// validateRun holds what every file of one validate invocation shares
type validateRun struct {
	cmd     *cobra.Command
	env     *environment
	opts    *validateOptions
	reports *store.ReportStore
	cached  *cache.CachedValidator // nil unless full reports are requested
}

func runValidate(cmd *cobra.Command, env *environment, opts *validateOptions, args []string) error {
	if err := env.setup(cmd); err != nil {
		return err
	}

	reports, closeStore, err := env.reportStore(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer closeStore()

	vr := &validateRun{cmd: cmd, env: env, opts: opts, reports: reports}
	if !opts.metadata && !opts.coreOnly && !opts.fieldsOnly {
		vr.cached, err = env.cachedValidator()
		if err != nil {
			return err
		}
		defer vr.cached.Close()
	}

	failures := 0
	for _, path := range args {
		var ok bool
		var err error
		if opts.metadata {
			ok, err = vr.record(path)
		} else {
			ok, err = vr.document(path)
		}
		if err != nil {
			return err
		}
		if !ok {
			failures++
		}
	}

	if opts.strict && failures > 0 {
		return fmt.Errorf("%w: %d of %d file(s)", ErrNotCompliant, failures, len(args))
	}
	return nil
}

// kindFor returns the explicit kind or derives it from the file name
func kindFor(opts *validateOptions, path string) string {
	if opts.kind != "" {
		return opts.kind
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// load reads path. A corrupt file is logged and reported through the second
// result rather than as an error, so the remaining files are still graded.
func (r *validateRun) load(path string) (document.Document, bool, error) {
	doc, err := document.Load(path)
	var corrupt *document.CorruptError
	if errors.As(err, &corrupt) {
		r.env.logger.Warn("document is corrupt", zap.String("path", path), zap.Error(err))
		return nil, true, nil
	}
	return doc, false, err
}

func (r *validateRun) document(path string) (bool, error) {
	cmd, env := r.cmd, r.env
	kind := kindFor(r.opts, path)
	if err := env.checkKind(cmd, kind); err != nil {
		return false, err
	}

	doc, corrupt, err := r.load(path)
	if err != nil {
		return false, err
	}
	if corrupt {
		report := &validator.Report{
			ID:        uuid.New(),
			Kind:      kind,
			Core:      state.Corrupt,
			CreatedAt: time.Now().UTC(),
		}
		return false, printReport(cmd, env, path, report)
	}

	v := env.validator()
	out := cmd.OutOrStdout()
	noColor := env.cfg.Output.NoColor

	switch {
	case r.opts.coreOnly:
		core, err := v.ValidateCore(kind, doc)
		if err != nil {
			return false, err
		}
		if env.jsonOutput() {
			return core.Acceptable(), writeJSON(out, map[string]interface{}{"file": path, "kind": kind, "core": core})
		}
		ui.WriteDetails(out, noColor,
			ui.Detail{Label: "file", Value: path},
			ui.Detail{Label: "kind", Value: kind},
			ui.Detail{Label: "core", Value: ui.FormatState(core, noColor)})
		return core.Acceptable(), nil

	case r.opts.fieldsOnly:
		fields, err := v.ValidateFields(kind, doc)
		if err != nil {
			return false, err
		}
		summary := state.Summarize(fields)
		if env.jsonOutput() {
			return summary.Compliant(), writeJSON(out, map[string]interface{}{"file": path, "kind": kind, "fields": fields, "summary": summary})
		}
		ui.Header(out, path, noColor)
		ui.RenderFields(out, fields, noColor)
		return summary.Compliant(), nil
	}

	report, cached, err := r.cached.Validate(cmd.Context(), kind, doc)
	if err != nil {
		return false, err
	}
	if r.reports != nil && !cached {
		if err := r.reports.Save(cmd.Context(), report); err != nil {
			return false, err
		}
	}

	return report.Core.Acceptable(), printReport(cmd, env, path, report)
}

func printReport(cmd *cobra.Command, env *environment, path string, report *validator.Report) error {
	if env.jsonOutput() {
		return writeJSON(cmd.OutOrStdout(), struct {
			File string `json:"file"`
			*validator.Report
			Summary state.Summary `json:"summary"`
		}{path, report, report.Summary()})
	}
	ui.RenderReport(cmd.OutOrStdout(), report, env.cfg.Output.NoColor)
	return nil
}

// record grades a whole metadata record. An unreadable record yields a
// report with every kind CORRUPT.
func (r *validateRun) record(path string) (bool, error) {
	cmd, env := r.cmd, r.env

	doc, corrupt, err := r.load(path)
	if err != nil {
		return false, err
	}

	var m *validator.MetadataReport
	if corrupt {
		m = env.validator().CorruptMetadata()
	} else {
		m = env.validator().ValidateMetadata(doc)
	}

	if r.reports != nil {
		if err := r.reports.SaveMetadata(cmd.Context(), m); err != nil {
			return false, err
		}
	}

	ok := true
	for _, core := range m.CoreStates() {
		if !core.Acceptable() {
			ok = false
		}
	}

	if env.jsonOutput() {
		return ok, writeJSON(cmd.OutOrStdout(), struct {
			File string `json:"file"`
			*validator.MetadataReport
		}{path, m})
	}
	ui.RenderMetadataReport(cmd.OutOrStdout(), m, env.cfg.Output.NoColor)
	return ok, nil
}
