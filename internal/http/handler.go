package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fiscaldesk/pendency-service/internal/http/middleware"
	"github.com/fiscaldesk/pendency-service/internal/mailer"
	"github.com/fiscaldesk/pendency-service/internal/model"
	"github.com/fiscaldesk/pendency-service/internal/service"
)

type Handler struct {
	pendencies *service.PendencyService
	generator  *service.GeneratorService
	settings   *service.SettingsService
	export     *service.ExportService
	smtp       *mailer.SMTPTransport
	log        zerolog.Logger
}

func NewHandler(
	pendencies *service.PendencyService,
	generator *service.GeneratorService,
	settings *service.SettingsService,
	export *service.ExportService,
	smtp *mailer.SMTPTransport,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		pendencies: pendencies,
		generator:  generator,
		settings:   settings,
		export:     export,
		smtp:       smtp,
		log:        log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/pendencies", h.createPendency)
	protected.POST("/pendencies/:id/cancel", h.cancelPendency)
	protected.GET("/pendencies/counters", h.statusCounters)
	protected.POST("/pendencies/:id/reports", h.submitReport)
	protected.POST("/reports/:id/review", h.reviewReport)
	protected.POST("/contracts/:id/pendencies/preview", h.previewGeneration)
	protected.POST("/contracts/:id/pendencies/generate", h.commitGeneration)
	protected.GET("/settings/notifications", h.getSettings)
	protected.PUT("/settings/notifications", h.updateSettings)
	protected.POST("/pendencies/export", h.exportSummary)
	protected.POST("/pendencies/export/pdf", h.exportSummaryPDF)
	protected.POST("/mail/diagnostic", h.mailDiagnostic)
}

type createPendencyRequest struct {
	ContractID  string `json:"contract_id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	DueDate     string `json:"due_date" binding:"required"`
}

func (h *Handler) createPendency(c *gin.Context) {
	principal, ok := h.requireAdministrator(c)
	if !ok {
		return
	}

	var req createPendencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contractID, err := uuid.Parse(strings.TrimSpace(req.ContractID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract_id"})
		return
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due_date"})
		return
	}

	pendency, err := h.pendencies.Create(c.Request.Context(), service.CreatePendencyInput{
		ContractID:  contractID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     dueDate,
		CreatedBy:   principal.UserID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pendency)
}

func (h *Handler) cancelPendency(c *gin.Context) {
	principal, ok := h.requireAdministrator(c)
	if !ok {
		return
	}
	pendencyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pendency id"})
		return
	}

	pendency, err := h.pendencies.Cancel(c.Request.Context(), pendencyID, principal.UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, pendency)
}

func (h *Handler) statusCounters(c *gin.Context) {
	if _, ok := middleware.MustPrincipal(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var contractID *uuid.UUID
	if raw := strings.TrimSpace(c.Query("contract_id")); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract_id"})
			return
		}
		contractID = &parsed
	}

	counters, err := h.pendencies.StatusCounters(c.Request.Context(), contractID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, counters)
}

type submitReportRequest struct {
	FileRef string `json:"file_ref" binding:"required"`
}

func (h *Handler) submitReport(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	pendencyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pendency id"})
		return
	}

	var req submitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.pendencies.SubmitReport(c.Request.Context(), service.SubmitReportInput{
		PendencyID: pendencyID,
		FileRef:    req.FileRef,
		FiscalID:   principal.UserID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

type reviewReportRequest struct {
	Decision string `json:"decision" binding:"required"`
	Notes    string `json:"notes"`
}

func (h *Handler) reviewReport(c *gin.Context) {
	principal, ok := h.requireAdministrator(c)
	if !ok {
		return
	}
	reportID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report id"})
		return
	}

	var req reviewReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision, err := parseDecision(req.Decision)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid decision"})
		return
	}

	report, err := h.pendencies.ReviewReport(c.Request.Context(), service.ReviewReportInput{
		ReportID:   reportID,
		Decision:   decision,
		ReviewerID: principal.UserID,
		Notes:      req.Notes,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) previewGeneration(c *gin.Context) {
	if _, ok := h.requireAdministrator(c); !ok {
		return
	}
	contractID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	entries, err := h.generator.Preview(c.Request.Context(), contractID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *Handler) commitGeneration(c *gin.Context) {
	principal, ok := h.requireAdministrator(c)
	if !ok {
		return
	}
	contractID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	pendencies, err := h.generator.Commit(c.Request.Context(), contractID, principal.UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"pendencies": pendencies})
}

func (h *Handler) getSettings(c *gin.Context) {
	if _, ok := h.requireAdministrator(c); !ok {
		return
	}
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

type updateSettingsRequest struct {
	EscalationEnabled      bool     `json:"escalation_enabled"`
	DaysToManager          int      `json:"days_to_manager" binding:"required"`
	DaysToAdmin            int      `json:"days_to_admin" binding:"required"`
	ReminderStartDays      int      `json:"reminder_start_days" binding:"required"`
	ReminderIntervalDays   int      `json:"reminder_interval_days" binding:"required"`
	GenerationIntervalDays int      `json:"generation_interval_days" binding:"required"`
	MilestoneAlertsEnabled bool     `json:"milestone_alerts_enabled"`
	MilestoneRecipients    []string `json:"milestone_recipients"`
	MilestoneSendHour      int      `json:"milestone_send_hour"`
}

func (h *Handler) updateSettings(c *gin.Context) {
	if _, ok := h.requireAdministrator(c); !ok {
		return
	}

	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings, err := h.settings.Update(c.Request.Context(), model.NotificationSettings{
		EscalationEnabled:      req.EscalationEnabled,
		DaysToManager:          req.DaysToManager,
		DaysToAdmin:            req.DaysToAdmin,
		ReminderStartDays:      req.ReminderStartDays,
		ReminderIntervalDays:   req.ReminderIntervalDays,
		GenerationIntervalDays: req.GenerationIntervalDays,
		MilestoneAlertsEnabled: req.MilestoneAlertsEnabled,
		MilestoneRecipients:    req.MilestoneRecipients,
		MilestoneSendHour:      req.MilestoneSendHour,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

type exportRequest struct {
	ContractID string `json:"contract_id" binding:"required"`
}

func (h *Handler) exportSummary(c *gin.Context) {
	h.runExport(c, false)
}

func (h *Handler) exportSummaryPDF(c *gin.Context) {
	h.runExport(c, true)
}

func (h *Handler) runExport(c *gin.Context, asPDF bool) {
	if _, ok := h.requireAdministrator(c); !ok {
		return
	}

	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	contractID, err := uuid.Parse(strings.TrimSpace(req.ContractID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract_id"})
		return
	}

	var result *service.ExportResult
	if asPDF {
		result, err = h.export.ExportSummaryPDF(c.Request.Context(), contractID)
	} else {
		result, err = h.export.ExportSummary(c.Request.Context(), contractID)
	}
	if err != nil {
		h.handleError(c, err)
		return
	}

	contentType := "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	if asPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, contentType, result.Content)
}

type mailDiagnosticRequest struct {
	To      string `json:"to" binding:"required,email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h *Handler) mailDiagnostic(c *gin.Context) {
	if _, ok := h.requireAdministrator(c); !ok {
		return
	}

	var req mailDiagnosticRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Subject == "" {
		req.Subject = "Teste de envio de e-mail"
	}
	if req.Body == "" {
		req.Body = "Mensagem de diagnóstico do serviço de pendências."
	}

	attempts := h.smtp.Diagnose(c.Request.Context(), mailer.Message{
		To:      req.To,
		Subject: req.Subject,
		Body:    req.Body,
	})
	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

func (h *Handler) requireAdministrator(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return model.Principal{}, false
	}
	if !principal.IsAdministrator() {
		c.JSON(http.StatusForbidden, gin.H{"error": "administrator profile required"})
		return model.Principal{}, false
	}
	return principal, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrStateConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseDecision(raw string) (model.ReviewDecision, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "APPROVE":
		return model.ReviewDecisionApprove, nil
	case "REJECT":
		return model.ReviewDecisionReject, nil
	default:
		return "", service.ErrInvalidInput
	}
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}
