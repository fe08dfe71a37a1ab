package openfisca

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/betagouv/aides-simplifiees-engine/compiler"
	"github.com/betagouv/aides-simplifiees-engine/entity"
	"github.com/betagouv/aides-simplifiees-engine/generic"
	"github.com/betagouv/aides-simplifiees-engine/mapping"
	"github.com/betagouv/aides-simplifiees-engine/survey"
)

// =============================================================================
// REGISTRY
// =============================================================================

// Sources returns the four dictionaries in registry form.
func Sources() []mapping.Source {
	return []mapping.Source{
		{Kind: generic.KindIndividual, Answers: individualAnswers, Questions: individualQuestions},
		{Kind: generic.KindHousehold, Answers: householdAnswers},
		{Kind: generic.KindTaxHousehold, Answers: taxHouseholdAnswers, Questions: taxHouseholdQuestions},
		{Kind: generic.KindFamily, Questions: familyQuestions},
	}
}

// MustRegistry builds the registry and panics if a key is mapped twice.
func MustRegistry() *mapping.Registry {
	r, err := mapping.NewRegistry(Sources()...)
	if err != nil {
		panic(err)
	}
	return r
}

var registry = sync.OnceValue(MustRegistry)

// Registry returns the process-wide registry, built on first use.
func Registry() *mapping.Registry { return registry() }

// QuestionKeys returns every question-only key, sorted.
func QuestionKeys() []string {
	var keys []string
	for _, src := range Sources() {
		for k := range src.Questions {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// =============================================================================
// REFINEMENTS AND DEFAULTS
// =============================================================================

// Refinements allows a precise tenancy to replace the generic one recorded
// by statut-logement.
func Refinements() entity.Refinements {
	return entity.Refinements{
		StatutOccupationLogement: entity.ReplacesValue(LocataireVide),
	}
}

// DefaultNationalite is assumed when the survey does not ask.
const DefaultNationalite = "FR"

// DefaultRules returns the engine-required defaults, in application order.
// The two annee_etude rules read the mobility flags already compiled; the
// first one that holds wins.
func DefaultRules() []compiler.DefaultRule {
	return []compiler.DefaultRule{
		{
			Name:     "nationalite",
			Kind:     generic.KindIndividual,
			Variable: "nationalite",
			Period:   generic.PeriodMonth,
			Value:    compiler.Constant(DefaultNationalite),
		},
		{
			Name:     "date-entree-logement",
			Kind:     generic.KindHousehold,
			Variable: "date_entree_logement",
			Period:   generic.PeriodMonth,
			Value: func(now time.Time) generic.Scalar {
				return generic.StartOfNextMonth(now).Format(time.DateOnly)
			},
		},
		{
			Name:     "annee-etude-mobilite-parcoursup",
			Kind:     generic.KindIndividual,
			Variable: "annee_etude",
			Period:   generic.PeriodMonth,
			Value:    compiler.Constant("terminale"),
			When:     compiler.IsTrue(generic.KindIndividual, "sortie_academie", generic.PeriodMonth),
		},
		{
			Name:     "annee-etude-mobilite-master",
			Kind:     generic.KindIndividual,
			Variable: "annee_etude",
			Period:   generic.PeriodMonth,
			Value:    compiler.Constant("licence_3"),
			When:     compiler.IsTrue(generic.KindIndividual, "sortie_region_academique", generic.PeriodMonth),
		},
	}
}

// =============================================================================
// BUILDER
// =============================================================================

// Options tune a production builder.
type Options struct {
	Clock                 generic.Clock
	RejectUndefinedValues bool
	FailFast              bool
	Logger                *slog.Logger
}

// Config returns the compiler configuration of the simulator.
func Config(opts Options) compiler.Config {
	return compiler.Config{
		Resolver:              Registry(),
		Entities:              EntityConfigs(),
		Refinements:           Refinements(),
		Defaults:              DefaultRules(),
		Clock:                 opts.Clock,
		RejectUndefinedValues: opts.RejectUndefinedValues,
		FailFast:              opts.FailFast,
		Logger:                opts.Logger,
	}
}

// NewBuilder returns a fresh builder for one compilation.
func NewBuilder(opts Options) (*compiler.Builder, error) {
	return compiler.New(Config(opts))
}

// Compile runs the full pipeline: answers, question probes, then defaults.
// The builder is returned so the caller can Build or fall back to
// BuildPartial.
func Compile(opts Options, answers *survey.Answers, questions ...string) (*compiler.Builder, error) {
	b, err := NewBuilder(opts)
	if err != nil {
		return nil, err
	}
	return b.AddAnswers(answers).AddQuestions(questions...).ApplyDefaultValues(), nil
}
