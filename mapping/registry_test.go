package mapping_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betagouv/aides-simplifiees-engine/generic"
	"github.com/betagouv/aides-simplifiees-engine/mapping"
)

func testRegistry(t *testing.T) *mapping.Registry {
	t.Helper()
	r, err := mapping.NewRegistry(
		mapping.Source{
			Kind:      generic.KindIndividual,
			Answers:   mapping.Dictionary{"date-naissance": mapping.Direct("date_naissance", generic.PeriodEternity)},
			Questions: mapping.Dictionary{"bourse": mapping.Direct("bourse_criteres_sociaux", generic.PeriodMonth)},
		},
		mapping.Source{
			Kind:    generic.KindHousehold,
			Answers: mapping.Dictionary{"loyer": mapping.Direct("loyer", generic.PeriodMonth)},
		},
		mapping.Source{
			Kind:    generic.KindFamily,
			Answers: mapping.Dictionary{"consentement": mapping.Excluded()},
		},
	)
	require.NoError(t, err)
	return r
}

func TestRegistry_ResolvesAnswerAndQuestionKeys(t *testing.T) {
	r := testRegistry(t)

	m, ok := r.Resolve("date-naissance")
	require.True(t, ok)
	assert.Equal(t, mapping.TypeDirect, m.Type)
	assert.Equal(t, "date_naissance", m.Variable)

	kind, ok := r.ResolveEntity("bourse")
	require.True(t, ok)
	assert.Equal(t, generic.KindIndividual, kind)

	kind, ok = r.ResolveEntity("loyer")
	require.True(t, ok)
	assert.Equal(t, generic.KindHousehold, kind)

	m, ok = r.Resolve("consentement")
	require.True(t, ok)
	assert.Equal(t, mapping.TypeExcluded, m.Type)
}

func TestRegistry_UnknownKey(t *testing.T) {
	r := testRegistry(t)

	_, ok := r.Resolve("unknown_xyz")
	assert.False(t, ok)
	_, ok = r.ResolveEntity("unknown_xyz")
	assert.False(t, ok)
}

func TestRegistry_RejectsKeyInTwoDictionaries(t *testing.T) {
	// GIVEN: the same key in the individual and household dictionaries
	_, err := mapping.NewRegistry(
		mapping.Source{Kind: generic.KindIndividual, Answers: mapping.Dictionary{"loyer": mapping.Direct("loyer", generic.PeriodMonth)}},
		mapping.Source{Kind: generic.KindHousehold, Answers: mapping.Dictionary{"loyer": mapping.Direct("loyer", generic.PeriodMonth)}},
	)
	// THEN: construction fails at startup
	require.Error(t, err)
	assert.True(t, errors.Is(err, mapping.ErrDuplicateKey))
	assert.Contains(t, err.Error(), `"loyer"`)
}

func TestRegistry_RejectsKeyInAnswersAndQuestionsOfSameKind(t *testing.T) {
	_, err := mapping.NewRegistry(mapping.Source{
		Kind:      generic.KindFamily,
		Answers:   mapping.Dictionary{"rsa": mapping.Direct("rsa", generic.PeriodMonth)},
		Questions: mapping.Dictionary{"rsa": mapping.Direct("rsa", generic.PeriodMonth)},
	})
	assert.ErrorIs(t, err, mapping.ErrDuplicateKey)
}

func TestRegistry_RejectsUnknownKind(t *testing.T) {
	_, err := mapping.NewRegistry(mapping.Source{Kind: "planetes"})
	assert.Error(t, err)
}

func TestRegistry_EntriesFollowKindOrder(t *testing.T) {
	r := testRegistry(t)
	entries := r.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, 4, r.Len())

	var keys []string
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"bourse", "date-naissance", "loyer", "consentement"}, keys)
}

// =============================================================================
// EXPANSION
// =============================================================================

func TestMapping_ExpandDirect(t *testing.T) {
	out, err := mapping.Direct("age", generic.PeriodMonth).Expand("age", 25.0, "2025-01")
	require.NoError(t, err)
	assert.Equal(t, []mapping.Assignment{{Variable: "age", Period: "2025-01", Value: 25.0}}, out)
}

func TestMapping_ExpandDispatchFansOut(t *testing.T) {
	fn := func(key string, v generic.Scalar, period string) ([]mapping.Assignment, error) {
		return []mapping.Assignment{
			{Variable: "activite", Period: period, Value: "etudiant"},
			{Variable: "alternant", Period: period, Value: v == "alternant"},
		}, nil
	}
	out, err := mapping.Dispatch(fn, generic.PeriodMonth).Expand("situation", "alternant", "2025-01")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, true, out[1].Value)
}

func TestMapping_ExpandMalformed(t *testing.T) {
	_, err := mapping.Mapping{}.Expand("k", "v", "2025-01")
	assert.Error(t, err)

	_, err = mapping.Mapping{Type: mapping.TypeDispatch}.Expand("k", "v", "2025-01")
	assert.Error(t, err)

	_, err = mapping.Excluded().Expand("k", "v", "2025-01")
	assert.Error(t, err)

	_, err = mapping.Direct("", generic.PeriodMonth).Expand("k", "v", "2025-01")
	assert.Error(t, err)
}
