/*
handlers.go - HTTP API handlers for the survey compilation engine

PURPOSE:
  Exposes the compiler to the survey front-end. Handles HTTP request/response,
  JSON serialization, and delegates to the compiler and the condition
  evaluator.

ENDPOINTS:
  Compilation:
    POST   /api/compile                  Compile answers into a calculation request
    GET    /api/compilations             Recent compilations (?limit=N)
    GET    /api/compilations/{id}        One compilation with answers and errors

  Survey:
    POST   /api/visibility               Visible questions and kept answers
    POST   /api/conditions/evaluate      Evaluate one visibleWhen expression

  Registry:
    GET    /api/mappings                 Every answer key and its target

THE FALLBACK DECISION:
  The compiler never decides what to serve on failure. With LegacyFallback
  on, a failed strict build still serves the permissive request (outcome
  "fallback") so a single mapping defect does not block an estimate. The
  precise errors are logged, counted and stored either way.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body, invalid schema or expression
  - 404: Compilation not found
  - 422: Strict build failed and fallback is off
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/betagouv/aides-simplifiees-engine/condition"
	"github.com/betagouv/aides-simplifiees-engine/factory"
	"github.com/betagouv/aides-simplifiees-engine/generic"
	"github.com/betagouv/aides-simplifiees-engine/mapping"
	"github.com/betagouv/aides-simplifiees-engine/openfisca"
	"github.com/betagouv/aides-simplifiees-engine/survey"
)

// DefaultListLimit bounds GET /api/compilations without ?limit.
const DefaultListLimit = 50

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Config holds the handler dependencies.
type Config struct {
	Store      generic.CompilationStore
	Conditions *condition.Evaluator
	Metrics    *Metrics
	Logger     *slog.Logger

	// Compiler options applied to every compilation.
	Compiler openfisca.Options

	// LegacyFallback serves the permissive request when the strict build fails.
	LegacyFallback bool

	// NewID and Now are injectable for tests.
	NewID func() string
	Now   func() time.Time
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	cfg     Config
	schemas *factory.SchemaFactory
	logger  *slog.Logger
}

// NewHandler creates a new handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Conditions == nil {
		cfg.Conditions = condition.MustNew(condition.Config{Logger: cfg.Logger})
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Now == nil {
		cfg.Now = generic.SystemClock
	}
	if cfg.Compiler.Logger == nil {
		cfg.Compiler.Logger = cfg.Logger
	}
	return &Handler{
		cfg:     cfg,
		schemas: factory.NewSchemaFactory(factory.WithConditionValidator(cfg.Conditions)),
		logger:  cfg.Logger,
	}
}

// =============================================================================
// COMPILATION HANDLERS
// =============================================================================

// Compile compiles one answer set.
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	var req CompileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	answers := req.Answers
	if answers == nil {
		answers = &survey.Answers{}
	}

	if len(req.Schema) > 0 {
		if err := h.schemas.ValidateQuestions(req.Schema); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid schema", err)
			return
		}
		visible, err := survey.FilterVisible(req.Schema, answers, h.cfg.Conditions)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid visibility condition", err)
			return
		}
		answers = survey.ExpandCheckboxes(req.Schema, visible)
	}

	start := time.Now()
	b, err := openfisca.Compile(h.cfg.Compiler, answers, req.Questions...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create compiler", err)
		return
	}

	resp := CompileResponse{ID: h.cfg.NewID(), Outcome: generic.OutcomeSuccess}
	status := http.StatusOK
	request, buildErr := b.Build()
	if buildErr != nil {
		resp.Errors = b.Errors()
		if h.cfg.LegacyFallback {
			request, _ = b.BuildPartial()
			resp.Outcome = generic.OutcomeFallback
		} else {
			resp.Outcome = generic.OutcomeFailure
			status = http.StatusUnprocessableEntity
		}
	}
	resp.Request = request
	h.cfg.Metrics.Observe(resp.Outcome, resp.Errors, time.Since(start))

	h.logger.Info("compilation",
		"compilation_id", resp.ID,
		"outcome", resp.Outcome,
		"errors", len(resp.Errors))
	for _, e := range resp.Errors {
		h.logger.Warn("compilation error",
			"compilation_id", resp.ID, "type", e.Type, "answer_key", e.AnswerKey, "message", e.Message)
	}

	h.save(r, resp, answers)
	writeJSON(w, status, resp)
}

// save records the compilation. A storage failure never fails the request.
func (h *Handler) save(r *http.Request, resp CompileResponse, answers *survey.Answers) {
	if h.cfg.Store == nil {
		return
	}
	rawAnswers, err := json.Marshal(answers)
	if err != nil {
		h.logger.Error("encode answers", "compilation_id", resp.ID, "error", err)
		return
	}
	rec := generic.CompilationRecord{
		ID:        resp.ID,
		CreatedAt: h.cfg.Now(),
		Outcome:   resp.Outcome,
		Answers:   rawAnswers,
		Errors:    resp.Errors,
	}
	if resp.Request != nil {
		if rec.Request, err = json.Marshal(resp.Request); err != nil {
			h.logger.Error("encode request", "compilation_id", resp.ID, "error", err)
			return
		}
	}
	if err := h.cfg.Store.Save(r.Context(), rec); err != nil {
		h.logger.Error("save compilation", "compilation_id", resp.ID, "error", err)
	}
}

// ListCompilations returns recent compilations, newest first.
func (h *Handler) ListCompilations(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Store == nil {
		writeJSON(w, http.StatusOK, []CompilationDTO{})
		return
	}

	limit := DefaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	recs, err := h.cfg.Store.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list compilations", err)
		return
	}
	dtos := make([]CompilationDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toCompilationDTO(rec, false)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCompilation returns one compilation in full.
func (h *Handler) GetCompilation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.cfg.Store == nil {
		writeError(w, http.StatusNotFound, "Compilation not found", nil)
		return
	}
	rec, err := h.cfg.Store.Get(r.Context(), id)
	if errors.Is(err, generic.ErrCompilationNotFound) {
		writeError(w, http.StatusNotFound, "Compilation not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load compilation", err)
		return
	}
	writeJSON(w, http.StatusOK, toCompilationDTO(*rec, true))
}

// =============================================================================
// SURVEY HANDLERS
// =============================================================================

// Visibility filters answers against a schema.
func (h *Handler) Visibility(w http.ResponseWriter, r *http.Request) {
	var req VisibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.schemas.ValidateQuestions(req.Schema); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid schema", err)
		return
	}
	if req.Answers == nil {
		req.Answers = &survey.Answers{}
	}

	kept, err := survey.FilterVisible(req.Schema, req.Answers, h.cfg.Conditions)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid visibility condition", err)
		return
	}

	resp := VisibilityResponse{Visible: []string{}, Answers: kept}
	for _, q := range req.Schema {
		ok, err := survey.Visible(q, kept, h.cfg.Conditions)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid visibility condition", err)
			return
		}
		if ok {
			resp.Visible = append(resp.Visible, q.ID)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// EvaluateCondition evaluates one expression.
func (h *Handler) EvaluateCondition(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Answers == nil {
		req.Answers = &survey.Answers{}
	}
	ok, err := h.cfg.Conditions.Evaluate(req.Expression, req.Answers)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Malformed expression", err)
		return
	}
	writeJSON(w, http.StatusOK, EvaluateResponse{Result: ok})
}

// =============================================================================
// REGISTRY HANDLERS
// =============================================================================

// ListMappings returns the registry content.
func (h *Handler) ListMappings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MappingDTOs(openfisca.Registry()))
}

// MappingDTOs lists a registry in API form.
func MappingDTOs(reg *mapping.Registry) []MappingDTO {
	entries := reg.Entries()
	dtos := make([]MappingDTO, len(entries))
	for i, e := range entries {
		dtos[i] = MappingDTO{
			Key:      e.Key,
			Entity:   e.Kind,
			Type:     e.Mapping.Type.String(),
			Variable: e.Mapping.Variable,
			Period:   e.Mapping.Period,
		}
	}
	return dtos
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
