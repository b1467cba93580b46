package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/analyzer"
	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/grading"
	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/registry"
	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/sandbox"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/utils"
	"github.com/GriffinCanCode/PatternLab/backend/internal/store"
)

const (
	Version = "0.3.0"

	defaultRunsLimit = 50
	maxRunsLimit     = 500
)

// PoolStatser reports execution host pool state
type PoolStatser interface {
	Stats() sandbox.PoolStats
}

// Deps are the handlers' collaborators. Pool and Metrics are optional.
type Deps struct {
	Exercises   *registry.Manager
	Coordinator *grading.Coordinator
	Analyzer    analyzer.Scanner
	History     store.Store
	Pool        PoolStatser
	Metrics     *monitoring.Metrics
	Logger      *logging.Logger
}

// Handlers contains all HTTP handlers
type Handlers struct {
	exercises   *registry.Manager
	coordinator *grading.Coordinator
	analyzer    analyzer.Scanner
	history     store.Store
	pool        PoolStatser
	metrics     *monitoring.Metrics
	sanitizer   *bluemonday.Policy
	log         *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(deps Deps) *Handlers {
	if deps.Analyzer == nil {
		deps.Analyzer = analyzer.New()
	}
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	return &Handlers{
		exercises:   deps.Exercises,
		coordinator: deps.Coordinator,
		analyzer:    deps.Analyzer,
		history:     deps.History,
		pool:        deps.Pool,
		metrics:     deps.Metrics,
		sanitizer:   bluemonday.UGCPolicy(),
		log:         deps.Logger.Named("http"),
	}
}

// Register mounts every route on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	r.GET("/exercises", h.ListExercises)
	r.GET("/exercises/:framework/:pattern", h.GetExercise)
	r.GET("/exercises/:framework/:pattern/stats", h.ExerciseStats)
	r.POST("/analyze", h.Analyze)

	r.POST("/sessions", h.OpenSession)
	r.DELETE("/sessions/:id", h.CloseSession)
	r.POST("/sessions/:id/submissions", h.Submit)
	r.POST("/sessions/:id/grade", h.Grade)
	r.GET("/sessions/:id/runs/:runId", h.GetRun)

	r.GET("/runs", h.ListRuns)
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "PatternLab Grading Service",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	body := gin.H{
		"status":   "healthy",
		"registry": h.exercises.Stats(),
		"grading":  h.coordinator.Stats(),
	}
	if h.pool != nil {
		stats := h.pool.Stats()
		body["pool"] = stats
		if stats.Closed {
			body["status"] = "degraded"
		}
	}
	c.JSON(http.StatusOK, body)
}

// ListExercises lists exercise summaries, optionally for one framework
func (h *Handlers) ListExercises(c *gin.Context) {
	var framework *types.FrameworkID
	if raw := c.Query("framework"); raw != "" {
		f := types.FrameworkID(raw)
		if !f.Valid() {
			respondError(c, badRequest("unknown framework %q", raw))
			return
		}
		framework = &f
	}

	c.JSON(http.StatusOK, gin.H{
		"exercises": h.exercises.List(framework),
		"stats":     h.exercises.Stats(),
	})
}

// exerciseView is what a learner sees of an exercise. Predicate sources
// stay on the server.
type exerciseView struct {
	Framework   types.FrameworkID `json:"framework"`
	Pattern     string            `json:"pattern"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Fixture     string            `json:"fixture,omitempty"`
	Skeleton    string            `json:"skeleton"`
	Assertions  []assertionView   `json:"assertions"`
}

type assertionView struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// GetExercise returns one exercise's learner-facing content
func (h *Handlers) GetExercise(c *gin.Context) {
	e, err := h.exercise(c)
	if err != nil {
		respondError(c, err)
		return
	}

	view := exerciseView{
		Framework:   e.Framework,
		Pattern:     e.Pattern,
		Title:       e.Title,
		Description: h.sanitizer.Sanitize(e.Description),
		Fixture:     e.Fixture,
		Skeleton:    e.SkeletonSource,
		Assertions:  make([]assertionView, len(e.Assertions)),
	}
	for i, a := range e.Assertions {
		view.Assertions[i] = assertionView{Index: a.Index, Name: a.Name}
	}
	c.JSON(http.StatusOK, view)
}

// ExerciseStats summarizes recorded runs of one exercise
func (h *Handlers) ExerciseStats(c *gin.Context) {
	e, err := h.exercise(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.history == nil {
		c.JSON(http.StatusOK, Summarize(nil))
		return
	}

	samples, err := h.history.ExerciseDurations(c.Request.Context(), e.Framework, e.Pattern)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Summarize(samples))
}

// AnalyzeRequest is the body of POST /analyze
type AnalyzeRequest struct {
	Source string `json:"source"`
}

// Analyze runs the skeleton analyzer over arbitrary source
func (h *Handlers) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest("invalid request body: %v", err))
		return
	}
	if err := utils.ValidateSource(req.Source, "source", utils.MaxSkeletonSize); err != nil {
		respondError(c, badRequest("%v", err))
		return
	}

	findings := h.analyzer.Analyze(req.Source)
	if h.metrics != nil {
		for _, f := range findings {
			h.metrics.RecordFinding(f.RuleID)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"findings": findings,
		"count":    len(findings),
		"clean":    len(findings) == 0,
	})
}

// OpenSessionRequest is the body of POST /sessions
type OpenSessionRequest struct {
	Framework string `json:"framework" binding:"required"`
	Pattern   string `json:"pattern" binding:"required"`
}

// OpenSession starts a grading session for one exercise
func (h *Handlers) OpenSession(c *gin.Context) {
	var req OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest("invalid request body: %v", err))
		return
	}

	s, err := h.coordinator.Open(types.FrameworkID(req.Framework), req.Pattern)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session_id": s.ID(),
		"exercise":   s.Exercise().Summary(),
	})
}

// CloseSession discards a session and its in-flight run
func (h *Handlers) CloseSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.coordinator.CloseSession(sessionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": sessionID,
	})
}

// SubmitRequest is the body of the submit and grade endpoints
type SubmitRequest struct {
	Code string `json:"code"`
}

// Submit starts grading and returns the run ID immediately
func (h *Handlers) Submit(c *gin.Context) {
	s, code, ok := h.submission(c)
	if !ok {
		return
	}

	runID, err := s.Submit(c.Request.Context(), code)
	if err != nil {
		if runID != 0 {
			h.respondRun(c, s, runID, err)
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"run_id":     runID,
		"session_id": s.ID(),
	})
}

// Grade submits and waits for the run to finish
func (h *Handlers) Grade(c *gin.Context) {
	s, code, ok := h.submission(c)
	if !ok {
		return
	}

	run, err := s.Grade(c.Request.Context(), code)
	if err != nil {
		if run != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error(), "run": newRunView(run)})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRunView(run))
}

// GetRun returns a snapshot of a recent run
func (h *Handlers) GetRun(c *gin.Context) {
	s, err := h.coordinator.Session(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	runID, err := strconv.ParseInt(c.Param("runId"), 10, 64)
	if err != nil || runID <= 0 {
		respondError(c, badRequest("invalid run id %q", c.Param("runId")))
		return
	}

	run, err := s.Run(runID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRunView(run))
}

// ListRuns pages through finished runs, newest first
func (h *Handlers) ListRuns(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultRunsLimit, 1, maxRunsLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0, 0, -1)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.history == nil {
		c.JSON(http.StatusOK, gin.H{"runs": []*store.Run{}, "total": 0})
		return
	}

	runs, total, err := h.history.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	c.JSON(http.StatusOK, gin.H{
		"runs":   runs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handlers) exercise(c *gin.Context) (*types.Exercise, error) {
	return h.exercises.Get(types.FrameworkID(c.Param("framework")), c.Param("pattern"))
}

func (h *Handlers) submission(c *gin.Context) (*grading.Session, string, bool) {
	s, err := h.coordinator.Session(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, "", false
	}
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest("invalid request body: %v", err))
		return nil, "", false
	}
	return s, req.Code, true
}

// respondRun reports a submit error together with the run it produced
func (h *Handlers) respondRun(c *gin.Context, s *grading.Session, runID int64, err error) {
	run, lookupErr := s.Run(runID)
	if lookupErr != nil {
		respondError(c, err)
		return
	}
	h.log.Warn("Submission rejected by breaker",
		logging.SessionID(s.ID()),
		logging.RunID(runID),
		zap.Error(err),
	)
	c.JSON(statusFor(err), gin.H{
		"error":  err.Error(),
		"run_id": runID,
		"run":    newRunView(run),
	})
}

// runView adds derived fields to a run
type runView struct {
	*types.GradingRun
	Passed     int   `json:"passed"`
	Total      int   `json:"total"`
	Verified   bool  `json:"verified"`
	DurationMS int64 `json:"duration_ms"`
}

func newRunView(run *types.GradingRun) runView {
	return runView{
		GradingRun: run,
		Passed:     run.Passed(),
		Total:      len(run.Results),
		Verified:   run.Status.Verified(),
		DurationMS: run.Duration().Milliseconds(),
	}
}

func queryInt(c *gin.Context, key string, def, lo, hi int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || (hi >= 0 && n > hi) {
		return 0, badRequest("invalid %s %q", key, raw)
	}
	return n, nil
}
