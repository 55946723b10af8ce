package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"TruthFilter/internal/domain"
	"TruthFilter/internal/logging"
	"TruthFilter/internal/usecase"
)

const (
	dateLayout   = "2006-01-02"
	defaultLimit = 100
)

// RecordStore is the slice of the result store the API reads and writes.
type RecordStore interface {
	Get(ctx context.Context, postID string) (domain.Record, error)
	List(ctx context.Context, filter domain.RecordFilter) ([]domain.Record, error)
	SetManualVerdict(ctx context.Context, postID string, verdict *domain.Verdict) error
}

// BriefingService builds cached briefings and answers questions.
type BriefingService interface {
	View(ctx context.Context, filter domain.RecordFilter) (usecase.BriefingView, error)
	Generate(ctx context.Context, filter domain.RecordFilter) (usecase.BriefingView, error)
	Ask(ctx context.Context, filter domain.RecordFilter, question string) (string, error)
}

type Handler struct {
	store     RecordStore
	briefings BriefingService
	logger    *slog.Logger
}

func NewHandler(store RecordStore, briefings BriefingService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{store: store, briefings: briefings, logger: logger}
}

type RecordResponse struct {
	PostID           string  `json:"post_id"`
	Platform         string  `json:"platform"`
	OriginalText     string  `json:"original_text"`
	Verdict          string  `json:"verdict"`
	ManualVerdict    *string `json:"manual_verdict"`
	EffectiveVerdict string  `json:"effective_verdict"`
	Summary          string  `json:"summary"`
	ProcessedAt      string  `json:"processed_at"`
	URL              string  `json:"url,omitempty"`
	ImagePath        string  `json:"image_path,omitempty"`
}

type RecordsResponse struct {
	Items []RecordResponse `json:"items"`
	Total int              `json:"total"`
}

type manualVerdictRequest struct {
	Verdict *string `json:"verdict"`
}

type askRequest struct {
	Question string `json:"question"`
}

func toRecordResponse(r domain.Record) RecordResponse {
	res := RecordResponse{
		PostID:           r.PostID,
		Platform:         string(r.Platform()),
		OriginalText:     r.OriginalText,
		Verdict:          string(r.Verdict),
		EffectiveVerdict: string(r.EffectiveVerdict()),
		Summary:          r.Summary,
		ProcessedAt:      r.ProcessedAt.Format(time.RFC3339),
		URL:              r.URL,
		ImagePath:        r.ImagePath,
	}
	if r.ManualVerdict != nil {
		v := string(*r.ManualVerdict)
		res.ManualVerdict = &v
	}
	return res
}

func (h *Handler) GetRecords(c *gin.Context) {
	filter, err := parseFilter(c, defaultLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := h.store.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("error listing records", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	res := RecordsResponse{Items: make([]RecordResponse, 0, len(records)), Total: len(records)}
	for _, r := range records {
		res.Items = append(res.Items, toRecordResponse(r))
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetRecord(c *gin.Context) {
	record, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	if err != nil {
		h.logger.Error("error fetching record", "post_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, toRecordResponse(record))
}

// PutManualVerdict sets or, with a null verdict, clears the human override.
func (h *Handler) PutManualVerdict(c *gin.Context) {
	var req manualVerdictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid body"})
		return
	}

	var verdict *domain.Verdict
	if req.Verdict != nil && !strings.EqualFold(*req.Verdict, "clear") {
		v, ok := domain.ParseVerdict(*req.Verdict)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown verdict"})
			return
		}
		verdict = &v
	}

	id := c.Param("id")
	err := h.store.SetManualVerdict(c.Request.Context(), id, verdict)
	if errors.Is(err, domain.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	if err != nil {
		h.logger.Error("error saving manual verdict", "post_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	record, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, toRecordResponse(record))
}

func (h *Handler) GetBriefing(c *gin.Context) {
	filter, err := parseFilter(c, 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := h.briefings.View(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("error loading briefing", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) PostBriefing(c *gin.Context) {
	filter, err := parseFilter(c, 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := h.briefings.Generate(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("error generating briefing", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Briefing failed"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) PostAsk(c *gin.Context) {
	filter, err := parseFilter(c, 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Question is required"})
		return
	}
	answer, err := h.briefings.Ask(c.Request.Context(), filter, req.Question)
	if err != nil {
		h.logger.Error("error answering question", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ask failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

// parseFilter reads from, to, platform, verdict, q and limit. platform and
// verdict accept repeated or comma separated values.
func parseFilter(c *gin.Context, limit int) (domain.RecordFilter, error) {
	filter := domain.RecordFilter{
		Search: strings.TrimSpace(c.Query("q")),
		Limit:  getQueryInt("limit", limit, c),
	}

	var err error
	if filter.From, err = parseDate(c.Query("from")); err != nil {
		return filter, errors.New("invalid from date, want YYYY-MM-DD")
	}
	if filter.To, err = parseDate(c.Query("to")); err != nil {
		return filter, errors.New("invalid to date, want YYYY-MM-DD")
	}

	for _, raw := range splitValues(c.QueryArray("platform")) {
		p, ok := domain.ParsePlatform(raw)
		if !ok {
			return filter, errors.New("unknown platform " + raw)
		}
		filter.Platforms = append(filter.Platforms, p)
	}
	for _, raw := range splitValues(c.QueryArray("verdict")) {
		v, ok := domain.ParseVerdict(raw)
		if !ok {
			return filter, errors.New("unknown verdict " + raw)
		}
		filter.Verdicts = append(filter.Verdicts, v)
	}
	return filter, nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dateLayout, value, time.Local)
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func getQueryInt(name string, defaultValue int, c *gin.Context) int {
	param := c.Query(name)
	if param == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(param)
	if err != nil || parsed < 0 {
		return defaultValue
	}
	return parsed
}
