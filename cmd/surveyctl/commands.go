package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/betagouv/aides-simplifiees-engine/condition"
	"github.com/betagouv/aides-simplifiees-engine/config"
	"github.com/betagouv/aides-simplifiees-engine/factory"
	"github.com/betagouv/aides-simplifiees-engine/generic"
	"github.com/betagouv/aides-simplifiees-engine/openfisca"
	"github.com/betagouv/aides-simplifiees-engine/survey"
)

// errBuildFailed marks a compile run where some file did not build.
var errBuildFailed = errors.New("some files have build errors")

type globalFlags struct {
	logLevel string
	strict   bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "surveyctl",
		Short:         "Compile survey answers and evaluate visibility conditions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&g.strict, "strict", false, "malformed conditions are errors")

	root.AddCommand(
		newCompileCmd(g),
		newEvalCmd(g),
		newVisibleCmd(g),
		newMappingsCmd(),
	)
	return root
}

func (g *globalFlags) evaluator(stderr io.Writer) (*condition.Evaluator, error) {
	return condition.New(condition.Config{
		Strict: g.strict,
		Logger: config.NewLoggerTo(stderr, g.logLevel, "text"),
	})
}

// =============================================================================
// COMPILE
// =============================================================================

// compileFile is the content of one answer file.
type compileFile struct {
	Answers   *survey.Answers `json:"answers"`
	Questions []string        `json:"questions"`
}

// compileResult is printed for every file, in argument order.
type compileResult struct {
	File    string                     `json:"file"`
	Outcome generic.Outcome            `json:"outcome"`
	Request generic.CalculationRequest `json:"request,omitempty"`
	Errors  generic.BuildErrors        `json:"errors,omitempty"`
}

func newCompileCmd(g *globalFlags) *cobra.Command {
	var (
		date            string
		partial         bool
		failFast        bool
		rejectUndefined bool
		workers         int
	)
	cmd := &cobra.Command{
		Use:   "compile FILE...",
		Short: "Compile answer files into calculation requests",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := openfisca.Options{
				FailFast:              failFast,
				RejectUndefinedValues: rejectUndefined,
				Logger:                config.NewLoggerTo(cmd.ErrOrStderr(), g.logLevel, "text"),
			}
			if date != "" {
				at, err := time.Parse(time.DateOnly, date)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
				opts.Clock = generic.FixedClock(at)
			}

			results, err := compileAll(cmd.Context(), args, opts, partial, workers)
			if err != nil {
				return err
			}
			if err := writeIndented(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			for _, r := range results {
				if r.Outcome == generic.OutcomeFailure {
					return errBuildFailed
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "reference date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&partial, "partial", false, "print the permissive request when the build fails")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop each file at its first error")
	cmd.Flags().BoolVar(&rejectUndefined, "reject-undefined", false, "null answers are errors")
	cmd.Flags().IntVar(&workers, "workers", 4, "files compiled concurrently")
	return cmd
}

// compileAll compiles every file with one builder each. Results keep the
// argument order.
func compileAll(ctx context.Context, files []string, opts openfisca.Options, partial bool, workers int) ([]compileResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]compileResult, len(files))
	eg, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		eg.SetLimit(workers)
	}
	for i, file := range files {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := compileOne(file, opts, partial)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func compileOne(file string, opts openfisca.Options, partial bool) (compileResult, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return compileResult{}, err
	}
	in, err := decodeCompileFile(data)
	if err != nil {
		return compileResult{}, fmt.Errorf("%s: %w", file, err)
	}

	b, err := openfisca.Compile(opts, in.Answers, in.Questions...)
	if err != nil {
		return compileResult{}, err
	}

	res := compileResult{File: file, Outcome: generic.OutcomeSuccess}
	req, buildErr := b.Build()
	switch {
	case buildErr == nil:
		res.Request = req
	case partial:
		res.Outcome = generic.OutcomeFallback
		res.Request, res.Errors = b.BuildPartial()
	default:
		res.Outcome = generic.OutcomeFailure
		res.Errors = b.Errors()
	}
	return res, nil
}

// decodeCompileFile accepts {"answers": {...}, "questions": [...]} or a bare
// answers object. The wrapped form needs an object under "answers" and no
// other top-level key than "answers" and "questions", so a survey with a
// question named "answers" still reads as bare answers.
func decodeCompileFile(data []byte) (compileFile, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return compileFile{}, err
	}
	if isWrapped(doc) {
		var in compileFile
		if err := json.Unmarshal(data, &in); err != nil {
			return compileFile{}, err
		}
		return in, nil
	}
	answers := &survey.Answers{}
	if err := json.Unmarshal(data, answers); err != nil {
		return compileFile{}, err
	}
	return compileFile{Answers: answers}, nil
}

func isWrapped(doc map[string]json.RawMessage) bool {
	raw, ok := doc["answers"]
	if !ok || !strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
		return false
	}
	for key := range doc {
		if key != "answers" && key != "questions" {
			return false
		}
	}
	return true
}

// =============================================================================
// EVAL
// =============================================================================

func newEvalCmd(g *globalFlags) *cobra.Command {
	var answersFile string
	cmd := &cobra.Command{
		Use:   "eval EXPR",
		Short: "Evaluate a visibility expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := g.evaluator(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			answers, err := readAnswers(answersFile)
			if err != nil {
				return err
			}
			ok, err := ev.Evaluate(args[0], answers)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
	cmd.Flags().StringVar(&answersFile, "answers", "", "answers JSON file")
	return cmd
}

// =============================================================================
// VISIBLE
// =============================================================================

func newVisibleCmd(g *globalFlags) *cobra.Command {
	var schemaFile, answersFile string
	var expand bool
	cmd := &cobra.Command{
		Use:   "visible",
		Short: "Print the answers kept after visibility filtering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := g.evaluator(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			schema, err := readSchema(schemaFile, ev)
			if err != nil {
				return err
			}
			answers, err := readAnswers(answersFile)
			if err != nil {
				return err
			}
			kept, err := survey.FilterVisible(schema.Questions(), answers, ev)
			if err != nil {
				return err
			}
			if expand {
				kept = survey.ExpandCheckboxes(schema.Questions(), kept)
			}
			return writeIndented(cmd.OutOrStdout(), kept)
		},
	}
	cmd.Flags().StringVar(&schemaFile, "schema", "", "schema file (.json, .yaml, .yml)")
	cmd.Flags().StringVar(&answersFile, "answers", "", "answers JSON file")
	cmd.Flags().BoolVar(&expand, "expand-checkboxes", false, "add one boolean answer per checkbox choice")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

// =============================================================================
// MAPPINGS
// =============================================================================

func newMappingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mappings",
		Short: "List every answer key and its target variable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tENTITY\tTYPE\tVARIABLE\tPERIOD")
			for _, e := range openfisca.Registry().Entries() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					e.Key, e.Kind, e.Mapping.Type, orDash(e.Mapping.Variable), orDash(string(e.Mapping.Period)))
			}
			return tw.Flush()
		},
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func readAnswers(path string) (*survey.Answers, error) {
	answers := &survey.Answers{}
	if path == "" {
		return answers, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, answers); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return answers, nil
}

func readSchema(path string, ev *condition.Evaluator) (*factory.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := factory.NewSchemaFactory(factory.WithConditionValidator(ev))
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return f.ParseSchemaYAML(data)
	default:
		return f.ParseSchemaJSON(data)
	}
}

func writeIndented(w io.Writer, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(raw, '\n'))
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
