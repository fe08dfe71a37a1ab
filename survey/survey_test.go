package survey_test

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betagouv/aides-simplifiees-engine/condition"
	"github.com/betagouv/aides-simplifiees-engine/survey"
)

// =============================================================================
// VALUE
// =============================================================================

func TestValue_DecodesEveryMemberOfTheUnion(t *testing.T) {
	tests := []struct {
		raw  string
		kind survey.Kind
	}{
		{`null`, survey.KindUnset},
		{`"oui"`, survey.KindString},
		{`12.5`, survey.KindNumber},
		{`true`, survey.KindBool},
		{`["a","b"]`, survey.KindList},
		{`{"text":"Paris","value":"75056"}`, survey.KindChoice},
	}
	for _, tt := range tests {
		var v survey.Value
		require.NoError(t, json.Unmarshal([]byte(tt.raw), &v), tt.raw)
		assert.Equal(t, tt.kind, v.Kind(), tt.raw)
	}
}

func TestValue_RejectsShapesOutsideTheUnion(t *testing.T) {
	var v survey.Value
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"text":"no value"}`), &v))
}

func TestValue_ChoiceWithNullValueIsUnanswered(t *testing.T) {
	var v survey.Value
	require.NoError(t, json.Unmarshal([]byte(`{"text":"Paris","value":null}`), &v))
	assert.True(t, v.IsUnset())

	v, err := survey.FromAny(map[string]any{"text": "Paris", "value": nil})
	require.NoError(t, err)
	assert.True(t, v.IsUnset())

	v, err = survey.FromAny(map[string]any{"text": "Trois", "value": 3.0})
	require.NoError(t, err)
	assert.True(t, v.Unwrap().Equal(survey.String("3")))

	_, err = survey.FromAny(map[string]any{"text": "Paris", "value": map[string]any{"a": 1.0}})
	assert.Error(t, err)
}

func TestValue_UnwrapCollapsesChoiceOnly(t *testing.T) {
	assert.True(t, survey.Choice("Oui", "oui").Unwrap().Equal(survey.String("oui")))
	assert.True(t, survey.Number(3).Unwrap().Equal(survey.Number(3)))

	s, ok := survey.Choice("Oui", "oui").Scalar()
	require.True(t, ok)
	assert.Equal(t, "oui", s)

	_, ok = survey.List("a").Scalar()
	assert.False(t, ok)
}

// =============================================================================
// ANSWERS
// =============================================================================

func TestAnswers_PreserveInsertionOrder(t *testing.T) {
	a := survey.MustAnswers("z", 1.0, "a", "x", "m", true)
	a.Set("a", survey.String("y")) // re-set keeps position
	assert.Equal(t, []string{"z", "a", "m"}, a.Keys())

	a.Delete("z")
	assert.Equal(t, []string{"a", "m"}, a.Keys())
	assert.Equal(t, 2, a.Len())
}

func TestAnswers_JSONKeepsDocumentOrder(t *testing.T) {
	raw := `{"date-naissance":"2000-01-01","boursier":true,"commune":{"text":"Paris","value":"75056"},"loyer":null}`

	var a survey.Answers
	require.NoError(t, json.Unmarshal([]byte(raw), &a))
	assert.Equal(t, []string{"date-naissance", "boursier", "commune", "loyer"}, a.Keys())

	out, err := json.Marshal(&a)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

// =============================================================================
// QUESTIONS AND VISIBILITY
// =============================================================================

func TestQuestion_RequiredDefaultsToTrue(t *testing.T) {
	var q survey.Question
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","type":"radio"}`), &q))
	assert.True(t, q.IsRequired())

	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","type":"radio","required":false}`), &q))
	assert.False(t, q.IsRequired())
}

func TestQuestion_VisibleWhenAcceptsStringOrList(t *testing.T) {
	var q survey.Question
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","visibleWhen":"b=1"}`), &q))
	assert.Equal(t, survey.Conditions{"b=1"}, q.VisibleWhen)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","visibleWhen":["b=1","c=2"]}`), &q))
	assert.Equal(t, survey.Conditions{"b=1", "c=2"}, q.VisibleWhen)
}

func TestFilterVisible_DropsHiddenAnswersTransitively(t *testing.T) {
	// GIVEN: loyer depends on statut, coloc depends on loyer
	questions := []survey.Question{
		{ID: "statut", Type: survey.TypeRadio},
		{ID: "loyer", Type: survey.TypeNumber, VisibleWhen: survey.Conditions{"statut=locataire"}},
		{ID: "coloc", Type: survey.TypeBoolean, VisibleWhen: survey.Conditions{"loyer>0"}},
	}
	// WHEN: the respondent switched to proprietaire after answering the rest
	a := survey.MustAnswers("statut", "proprietaire", "loyer", 500.0, "coloc", true, "extra", "kept")

	ev := condition.MustNew(condition.Config{})
	visible, err := survey.FilterVisible(questions, a, ev)

	// THEN: loyer and the coloc question hanging off it disappear
	require.NoError(t, err)
	assert.Equal(t, []string{"statut", "extra"}, visible.Keys())
}

func TestFilterVisible_StrictErrorsPropagate(t *testing.T) {
	questions := []survey.Question{{ID: "a", VisibleWhen: survey.Conditions{"nonsense"}}}
	ev := condition.MustNew(condition.Config{Strict: true})

	_, err := survey.FilterVisible(questions, survey.MustAnswers("a", "x"), ev)
	assert.ErrorIs(t, err, condition.ErrMalformed)
}

func TestExpandCheckboxes(t *testing.T) {
	questions := []survey.Question{{
		ID:   "situation-handicap",
		Type: survey.TypeCheckbox,
		Choices: []survey.Option{
			{ID: "handicap-moteur"}, {ID: "handicap-visuel"}, {ID: "handicap-auditif"},
		},
	}}
	a := survey.MustAnswers(
		"situation-handicap", []string{"handicap-visuel"},
		"boursier", true,
	)

	out := survey.ExpandCheckboxes(questions, a)

	assert.Equal(t, []string{
		"situation-handicap", "handicap-moteur", "handicap-visuel", "handicap-auditif", "boursier",
	}, out.Keys())
	v, _ := out.Get("handicap-visuel")
	assert.True(t, v.Equal(survey.Bool(true)))
	v, _ = out.Get("handicap-moteur")
	assert.True(t, v.Equal(survey.Bool(false)))
}
