package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-mastery/internal/http/response"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/services"
)

type RecommendationHandler struct {
	log *logger.Logger
	rec services.RecommendationService
}

func NewRecommendationHandler(log *logger.Logger, rec services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{log: log.With("handler", "RecommendationHandler"), rec: rec}
}

// GET /api/students/:student_id/subjects/:subject_id/next-module
func (h *RecommendationHandler) GetNextModule(c *gin.Context) {
	rd, studentID, ok := studentScope(c)
	if !ok {
		return
	}
	subjectID, ok := uuidParam(c, "subject_id")
	if !ok {
		return
	}
	rec, err := h.rec.GetNextModule(c.Request.Context(), rd.TenantID, studentID, subjectID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	// A nil recommendation is a valid answer: nothing is due and the path is done.
	response.RespondOK(c, gin.H{"recommendation": rec})
}

// GET /api/students/:student_id/review-queue
func (h *RecommendationHandler) GetReviewQueue(c *gin.Context) {
	rd, studentID, ok := studentScope(c)
	if !ok {
		return
	}
	items, err := h.rec.GetReviewQueue(c.Request.Context(), rd.TenantID, studentID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if items == nil {
		items = []services.ReviewItem{}
	}
	response.RespondOK(c, gin.H{"reviews": items})
}

// GET /api/students/:student_id/subjects/:subject_id/diagnostic
func (h *RecommendationHandler) GetDiagnosticAssessment(c *gin.Context) {
	rd, studentID, ok := studentScope(c)
	if !ok {
		return
	}
	subjectID, ok := uuidParam(c, "subject_id")
	if !ok {
		return
	}
	items, err := h.rec.GetDiagnosticAssessment(c.Request.Context(), rd.TenantID, studentID, subjectID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if items == nil {
		items = []services.DiagnosticItem{}
	}
	response.RespondOK(c, gin.H{"skills": items})
}

// GET /api/students/:student_id/modules/:module_id/access
func (h *RecommendationHandler) CanAccessModule(c *gin.Context) {
	rd, studentID, ok := studentScope(c)
	if !ok {
		return
	}
	moduleID, ok := uuidParam(c, "module_id")
	if !ok {
		return
	}
	acc, err := h.rec.CanAccessModule(c.Request.Context(), rd.TenantID, studentID, moduleID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"access": acc})
}
