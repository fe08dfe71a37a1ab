package openfisca_test

import (
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betagouv/aides-simplifiees-engine/generic"
	"github.com/betagouv/aides-simplifiees-engine/mapping"
	"github.com/betagouv/aides-simplifiees-engine/openfisca"
	"github.com/betagouv/aides-simplifiees-engine/survey"
)

var opts = openfisca.Options{
	Clock: generic.FixedClock(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)),
}

func usager(t *testing.T, req generic.CalculationRequest) generic.EntityRecord {
	t.Helper()
	rec, ok := req.Entity(generic.KindIndividual, openfisca.IndividualID)
	require.True(t, ok)
	return rec
}

// =============================================================================
// REGISTRY
// =============================================================================

func TestRegistry_EveryKeyBelongsToOneDictionary(t *testing.T) {
	_, err := mapping.NewRegistry(openfisca.Sources()...)
	require.NoError(t, err)

	r := openfisca.Registry()
	assert.Same(t, r, openfisca.Registry())

	kind, ok := r.ResolveEntity("loyer")
	require.True(t, ok)
	assert.Equal(t, generic.KindHousehold, kind)

	kind, ok = r.ResolveEntity("rsa")
	require.True(t, ok)
	assert.Equal(t, generic.KindFamily, kind)
}

func TestQuestionKeys(t *testing.T) {
	assert.Equal(t, []string{
		"aide-mobilite-master", "aide-mobilite-parcoursup", "aides-logement",
		"bourse-criteres-sociaux", "impot-revenu", "prime-activite", "rsa",
	}, openfisca.QuestionKeys())
}

// =============================================================================
// END TO END
// =============================================================================

func TestCompile_BirthDateAndScholarship(t *testing.T) {
	// GIVEN: a birth date and the scholarship flag
	// WHEN: compiled
	// THEN: zero errors, both variables on the individual at their periods

	b, err := openfisca.Compile(opts, survey.MustAnswers(
		"date-naissance", "2000-01-01",
		"boursier", true,
	))
	require.NoError(t, err)

	req, err := b.Build()
	require.NoError(t, err)

	rec := usager(t, req)
	assert.Equal(t, generic.PeriodValues{"ETERNITY": "2000-01-01"}, rec["date_naissance"])
	assert.Equal(t, generic.PeriodValues{"2025-03": true}, rec["boursier"])
}

func TestCompile_UnknownKey(t *testing.T) {
	b, err := openfisca.NewBuilder(opts)
	require.NoError(t, err)

	_, err = b.AddAnswer("unknown_xyz", survey.String("v")).Build()
	var errs generic.BuildErrors
	require.True(t, errors.As(err, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, generic.ErrorUnknownVariable, errs[0].Type)
	assert.Equal(t, "unknown_xyz", errs[0].AnswerKey)
}

func TestCompile_CanonicalRequestShape(t *testing.T) {
	b, err := openfisca.Compile(opts, survey.MustAnswers("loyer", 450))
	require.NoError(t, err)
	req, err := b.Build()
	require.NoError(t, err)

	raw, err := json.Marshal(req)
	require.NoError(t, err)

	var doc map[string]map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc, 4)
	assert.Contains(t, doc["individus"], "usager")
	assert.Equal(t, []any{"usager"}, doc["menages"]["menage_usager"]["personne_de_reference"])
	assert.Equal(t, []any{"usager"}, doc["foyers_fiscaux"]["foyer_fiscal_usager"]["declarants"])
	assert.Equal(t, []any{"usager"}, doc["familles"]["famille_usager"]["parents"])
	assert.Equal(t, map[string]any{"2025-03": 450.0}, doc["menages"]["menage_usager"]["loyer"])
}

func TestCompile_SituationProfessionnelleFansOut(t *testing.T) {
	b, err := openfisca.Compile(opts, survey.MustAnswers("situation-professionnelle", "alternant"))
	require.NoError(t, err)
	req, err := b.Build()
	require.NoError(t, err)

	rec := usager(t, req)
	assert.Equal(t, generic.PeriodValues{"2025-03": "etudiant"}, rec["activite"])
	assert.Equal(t, generic.PeriodValues{"2025-03": true}, rec["alternant"])
	assert.Equal(t, generic.PeriodValues{"2025-03": false}, rec["stagiaire"])
}

func TestCompile_UnknownSituationIsMappingError(t *testing.T) {
	b, err := openfisca.Compile(opts, survey.MustAnswers("situation-professionnelle", "astronaute"))
	require.NoError(t, err)
	_, err = b.Build()
	assert.ErrorIs(t, err, generic.ErrMapping)
}

func TestCompile_TypeLocationRefinesTenancy(t *testing.T) {
	// GIVEN: a generic tenant answer then a furnished tenancy
	// THEN: the refinement replaces locataire_vide without error

	b, err := openfisca.Compile(opts, survey.MustAnswers(
		"statut-logement", "locataire",
		"type-location", "meuble",
	))
	require.NoError(t, err)
	req, err := b.Build()
	require.NoError(t, err)

	pv, ok := req.Variable(generic.KindHousehold, openfisca.HouseholdID, openfisca.StatutOccupationLogement)
	require.True(t, ok)
	assert.Equal(t, "locataire_meuble", pv["2025-03"])
}

func TestCompile_OwnerCannotBeRefinedIntoTenant(t *testing.T) {
	b, err := openfisca.Compile(opts, survey.MustAnswers(
		"statut-logement", "proprietaire",
		"type-location", "meuble",
	))
	require.NoError(t, err)
	_, err = b.Build()

	var errs generic.BuildErrors
	require.True(t, errors.As(err, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "type-location", errs[0].AnswerKey)
}

func TestCompile_ExcludedCheckboxParent(t *testing.T) {
	b, err := openfisca.Compile(opts, survey.MustAnswers(
		"aides-deja-percues", []string{"apl", "rsa"},
		"consentement", true,
	))
	require.NoError(t, err)
	req, err := b.Build()
	require.NoError(t, err)
	assert.NotContains(t, usager(t, req), "aides_deja_percues")
}

func TestCompile_ComboboxCommune(t *testing.T) {
	b, err := openfisca.Compile(opts, survey.MustAnswers(
		"commune", map[string]any{"text": "Lyon", "value": "69123"},
	))
	require.NoError(t, err)
	req, err := b.Build()
	require.NoError(t, err)

	pv, _ := req.Variable(generic.KindHousehold, openfisca.HouseholdID, "depcom")
	assert.Equal(t, "69123", pv["2025-03"])
}

func TestCompile_FiscalPeriods(t *testing.T) {
	b, err := openfisca.Compile(opts, survey.MustAnswers(
		"revenu-fiscal-reference", 15000,
		"nombre-parts-fiscales", 1,
	), "impot-revenu")
	require.NoError(t, err)
	req, err := b.Build()
	require.NoError(t, err)

	rfr, _ := req.Variable(generic.KindTaxHousehold, openfisca.TaxHouseholdID, "rfr")
	assert.Equal(t, generic.PeriodValues{"2024": 15000.0}, rfr)
	nbptr, _ := req.Variable(generic.KindTaxHousehold, openfisca.TaxHouseholdID, "nbptr")
	assert.Equal(t, generic.PeriodValues{"2025": 1.0}, nbptr)
	impot, _ := req.Variable(generic.KindTaxHousehold, openfisca.TaxHouseholdID, "impot_revenu_restant_a_payer")
	assert.Equal(t, generic.PeriodValues{"2025": nil}, impot)
}

func TestCompile_QuestionsProbeFamilyBenefits(t *testing.T) {
	b, err := openfisca.Compile(opts, &survey.Answers{}, "aides-logement", "rsa", "prime-activite")
	require.NoError(t, err)
	req, err := b.Build()
	require.NoError(t, err)

	for _, v := range []string{"aide_logement", "rsa", "ppa"} {
		pv, ok := req.Variable(generic.KindFamily, openfisca.FamilyID, v)
		require.True(t, ok, v)
		assert.Equal(t, generic.PeriodValues{"2025-03": nil}, pv, v)
	}
}

// =============================================================================
// DEFAULTS
// =============================================================================

func TestCompile_Defaults(t *testing.T) {
	b, err := openfisca.Compile(opts, &survey.Answers{})
	require.NoError(t, err)
	req, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, generic.PeriodValues{"2025-03": "FR"}, usager(t, req)["nationalite"])

	entree, _ := req.Variable(generic.KindHousehold, openfisca.HouseholdID, "date_entree_logement")
	assert.Equal(t, generic.PeriodValues{"2025-03": "2025-04-01"}, entree)

	assert.NotContains(t, usager(t, req), "annee_etude")
}

func TestCompile_AnsweredNationaliteWins(t *testing.T) {
	b, err := openfisca.Compile(opts, survey.MustAnswers("nationalite", "DE"))
	require.NoError(t, err)
	req, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, generic.PeriodValues{"2025-03": "DE"}, usager(t, req)["nationalite"])
}

func TestCompile_MobilityOverrides(t *testing.T) {
	tests := []struct {
		name    string
		answers *survey.Answers
		want    any
	}{
		{"leaving academy", survey.MustAnswers("sortie-academie", true), "terminale"},
		{"leaving region", survey.MustAnswers("sortie-region-academique", true), "licence_3"},
		{"both, first rule wins", survey.MustAnswers("sortie-academie", true, "sortie-region-academique", true), "terminale"},
		{"answered year kept", survey.MustAnswers("annee-etude", "master_1", "sortie-academie", true), "master_1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := openfisca.Compile(opts, tt.answers)
			require.NoError(t, err)
			req, err := b.Build()
			require.NoError(t, err)
			assert.Equal(t, generic.PeriodValues{"2025-03": tt.want}, usager(t, req)["annee_etude"])
		})
	}
}

func TestCompile_FailFast(t *testing.T) {
	o := opts
	o.FailFast = true
	b, err := openfisca.Compile(o, survey.MustAnswers("nope", 1, "encore", 2))
	require.NoError(t, err)
	_, err = b.Build()

	var errs generic.BuildErrors
	require.True(t, errors.As(err, &errs))
	assert.Len(t, errs, 1)
}
