/*
handlers_test.go - HTTP tests for API handlers

Tests for:
- Compilation (success, fallback, strict failure, schema filtering)
- Compilation history
- Visibility and condition evaluation
- Registry listing, metrics and health
*/
package api_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betagouv/aides-simplifiees-engine/api"
	"github.com/betagouv/aides-simplifiees-engine/condition"
	"github.com/betagouv/aides-simplifiees-engine/generic"
	"github.com/betagouv/aides-simplifiees-engine/openfisca"
	"github.com/betagouv/aides-simplifiees-engine/store"
)

type fixture struct {
	server *httptest.Server
	store  *store.Memory
}

func newFixture(t *testing.T, fallback, strict bool) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	mem := store.NewMemory()
	ids := 0

	h := api.NewHandler(api.Config{
		Store:      mem,
		Conditions: condition.MustNew(condition.Config{Strict: strict}),
		Metrics:    api.MustNewMetrics(reg),
		Compiler: openfisca.Options{
			Clock: generic.FixedClock(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)),
		},
		LegacyFallback: fallback,
		NewID: func() string {
			ids++
			return "c-" + string(rune('0'+ids))
		},
	})
	srv := httptest.NewServer(api.NewRouter(h, api.RouterOptions{Gatherer: reg}))
	t.Cleanup(srv.Close)
	return &fixture{server: srv, store: mem}
}

func (f *fixture) post(t *testing.T, path, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(f.server.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode, decode(t, resp.Body)
}

func (f *fixture) get(t *testing.T, path string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decode(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(r).Decode(&out))
	return out
}

func dig(v any, path ...string) any {
	for _, p := range path {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[p]
	}
	return v
}

// =============================================================================
// COMPILE
// =============================================================================

func TestCompile_Success(t *testing.T) {
	// GIVEN: a birth date and the scholarship flag
	// WHEN: POST /api/compile
	// THEN: 200, the request, and a stored success record

	f := newFixture(t, true, false)
	status, body := f.post(t, "/api/compile",
		`{"answers": {"date-naissance": "2000-01-01", "boursier": true}, "questions": ["bourse-criteres-sociaux"]}`)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", body["outcome"])
	assert.Equal(t, "2000-01-01", dig(body, "request", "individus", "usager", "date_naissance", "ETERNITY"))
	assert.Equal(t, true, dig(body, "request", "individus", "usager", "boursier", "2025-03"))
	assert.Contains(t, dig(body, "request", "individus", "usager", "bourse_criteres_sociaux"), "2025-03")
	assert.Nil(t, body["errors"])

	rec, err := f.store.Get(t.Context(), body["id"].(string))
	require.NoError(t, err)
	assert.Equal(t, generic.OutcomeSuccess, rec.Outcome)
	assert.JSONEq(t, `{"date-naissance":"2000-01-01","boursier":true}`, string(rec.Answers))
}

func TestCompile_FallbackServesPartialRequest(t *testing.T) {
	f := newFixture(t, true, false)
	status, body := f.post(t, "/api/compile", `{"answers": {"loyer": 450, "unknown_xyz": "v"}}`)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "fallback", body["outcome"])
	assert.Equal(t, 450.0, dig(body, "request", "menages", "menage_usager", "loyer", "2025-03"))

	errs := body["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "UNKNOWN_VARIABLE", dig(errs[0], "type"))
	assert.Equal(t, "unknown_xyz", dig(errs[0], "answerKey"))
}

func TestCompile_StrictFailure(t *testing.T) {
	f := newFixture(t, false, false)
	status, body := f.post(t, "/api/compile", `{"answers": {"unknown_xyz": "v"}}`)

	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "failure", body["outcome"])
	assert.Nil(t, body["request"])

	rec, err := f.store.Get(t.Context(), body["id"].(string))
	require.NoError(t, err)
	assert.Nil(t, rec.Request)
	assert.Len(t, rec.Errors, 1)
}

func TestCompile_SchemaFiltersHiddenAnswersAndExpandsCheckboxes(t *testing.T) {
	// GIVEN: boursier only visible to students, a checkbox of known choices
	// WHEN: an employee answers boursier anyway
	// THEN: boursier is dropped and the checkbox choice becomes a boolean

	f := newFixture(t, false, false)
	body := `{
	  "schema": [
	    {"id": "situation-professionnelle", "type": "radio", "choices": [{"id": "etudiant"}, {"id": "salarie"}]},
	    {"id": "boursier", "type": "boolean", "visibleWhen": "situation-professionnelle=etudiant"},
	    {"id": "situation-handicap", "type": "checkbox", "choices": [{"id": "handicap"}]}
	  ],
	  "answers": {"situation-professionnelle": "salarie", "boursier": true, "situation-handicap": ["handicap"]}
	}`
	status, resp := f.post(t, "/api/compile", body)

	require.Equal(t, http.StatusOK, status, resp)
	usager := dig(resp, "request", "individus", "usager").(map[string]any)
	assert.NotContains(t, usager, "boursier")
	assert.Equal(t, "actif", dig(usager, "activite", "2025-03"))
	assert.Equal(t, true, dig(usager, "handicap", "2025-03"))
}

func TestCompile_BadBody(t *testing.T) {
	f := newFixture(t, true, false)
	status, _ := f.post(t, "/api/compile", `{"answers": [`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = f.post(t, "/api/compile", `{"answers": {"x": {"nested": 1}}}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

// =============================================================================
// HISTORY
// =============================================================================

func TestCompilations_ListAndGet(t *testing.T) {
	f := newFixture(t, true, false)
	f.post(t, "/api/compile", `{"answers": {"loyer": 1}}`)
	f.post(t, "/api/compile", `{"answers": {"nope": 1}}`)

	status, raw := f.get(t, "/api/compilations?limit=10")
	require.Equal(t, http.StatusOK, status)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 2)
	assert.Nil(t, list[0]["answers"])

	status, raw = f.get(t, "/api/compilations/c-1")
	require.Equal(t, http.StatusOK, status)
	one := decode(t, bytes.NewReader(raw))
	assert.Equal(t, "success", one["outcome"])
	assert.Equal(t, 1.0, dig(one, "answers", "loyer"))

	status, _ = f.get(t, "/api/compilations/unknown")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.get(t, "/api/compilations?limit=-1")
	assert.Equal(t, http.StatusBadRequest, status)
}

// =============================================================================
// SURVEY
// =============================================================================

func TestVisibility(t *testing.T) {
	f := newFixture(t, true, false)
	status, body := f.post(t, "/api/visibility", `{
	  "schema": [
	    {"id": "age", "type": "number"},
	    {"id": "majeur", "type": "boolean", "visibleWhen": "age>=18"}
	  ],
	  "answers": {"age": 15, "majeur": true}
	}`)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"age"}, body["visible"])
	assert.Equal(t, map[string]any{"age": 15.0}, body["answers"])
}

func TestEvaluateCondition(t *testing.T) {
	f := newFixture(t, true, false)
	status, body := f.post(t, "/api/conditions/evaluate",
		`{"expression": "a>=18&&a<=30", "answers": {"a": 25}}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["result"])

	status, body = f.post(t, "/api/conditions/evaluate", `{"expression": "=2", "answers": {}}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["result"])
}

func TestEvaluateCondition_StrictRejectsMalformed(t *testing.T) {
	f := newFixture(t, true, true)
	status, body := f.post(t, "/api/conditions/evaluate", `{"expression": "=2"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Malformed expression", body["error"])
}

// =============================================================================
// REGISTRY, METRICS, HEALTH
// =============================================================================

func TestListMappings(t *testing.T) {
	f := newFixture(t, true, false)
	status, raw := f.get(t, "/api/mappings")
	require.Equal(t, http.StatusOK, status)

	var list []api.MappingDTO
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Len(t, list, openfisca.Registry().Len())

	found := false
	for _, m := range list {
		if m.Key == "revenu-fiscal-reference" {
			found = true
			assert.Equal(t, generic.KindTaxHousehold, m.Entity)
			assert.Equal(t, "direct", m.Type)
			assert.Equal(t, "rfr", m.Variable)
			assert.Equal(t, generic.PeriodLastYear, m.Period)
		}
	}
	assert.True(t, found)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, true, false)
	f.post(t, "/api/compile", `{"answers": {"loyer": 1}}`)
	f.post(t, "/api/compile", `{"answers": {"nope": 1, "encore": 2}}`)

	status, raw := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, status)
	text := string(raw)
	assert.Contains(t, text, `aides_compilations_total{outcome="success"} 1`)
	assert.Contains(t, text, `aides_compilations_total{outcome="fallback"} 1`)
	assert.Contains(t, text, `aides_build_errors_total{type="UNKNOWN_VARIABLE"} 2`)
	assert.Contains(t, text, "aides_compilation_duration_seconds_count 2")
}

func TestHealth(t *testing.T) {
	f := newFixture(t, true, false)
	status, raw := f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))
}
