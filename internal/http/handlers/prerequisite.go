package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-mastery/internal/http/response"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/services"
)

type PrerequisiteHandler struct {
	log     *logger.Logger
	prereqs services.PrerequisiteService
}

func NewPrerequisiteHandler(log *logger.Logger, prereqs services.PrerequisiteService) *PrerequisiteHandler {
	return &PrerequisiteHandler{log: log.With("handler", "PrerequisiteHandler"), prereqs: prereqs}
}

// GET /api/students/:student_id/skills/:skill_key/prerequisites
func (h *PrerequisiteHandler) GetPrerequisiteStatus(c *gin.Context) {
	rd, studentID, ok := studentScope(c)
	if !ok {
		return
	}
	skillKey, ok := skillParam(c)
	if !ok {
		return
	}
	status, err := h.prereqs.GetPrerequisiteStatus(c.Request.Context(), rd.TenantID, studentID, skillKey)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"prerequisites": status})
}

// GET /api/subjects/:subject_id/skills/:skill_key/chain
func (h *PrerequisiteHandler) GetPrerequisiteChain(c *gin.Context) {
	rd, ok := tenantScope(c)
	if !ok {
		return
	}
	subjectID, ok := uuidParam(c, "subject_id")
	if !ok {
		return
	}
	skillKey, ok := skillParam(c)
	if !ok {
		return
	}
	chain, err := h.prereqs.GetPrerequisiteChain(c.Request.Context(), rd.TenantID, subjectID, skillKey)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"chain": chain})
}

// GET /api/subjects/:subject_id/bottlenecks
func (h *PrerequisiteHandler) FindBottlenecks(c *gin.Context) {
	rd, ok := tenantScope(c)
	if !ok {
		return
	}
	subjectID, ok := uuidParam(c, "subject_id")
	if !ok {
		return
	}
	out, err := h.prereqs.FindPrerequisiteBottlenecks(c.Request.Context(), rd.TenantID, subjectID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"bottlenecks": out})
}

// GET /api/subjects/:subject_id/learning-order
func (h *PrerequisiteHandler) GetLearningOrder(c *gin.Context) {
	rd, ok := tenantScope(c)
	if !ok {
		return
	}
	subjectID, ok := uuidParam(c, "subject_id")
	if !ok {
		return
	}
	order, err := h.prereqs.GetRecommendedLearningOrder(c.Request.Context(), rd.TenantID, subjectID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"learning_order": order})
}

// GET /api/subjects/:subject_id/graph/validate
func (h *PrerequisiteHandler) ValidateGraph(c *gin.Context) {
	rd, ok := tenantScope(c)
	if !ok {
		return
	}
	subjectID, ok := uuidParam(c, "subject_id")
	if !ok {
		return
	}
	if err := h.prereqs.ValidateGraph(c.Request.Context(), rd.TenantID, subjectID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"valid": true})
}

// POST /api/subjects/:subject_id/graph/sync
func (h *PrerequisiteHandler) SyncGraph(c *gin.Context) {
	rd, ok := tenantScope(c)
	if !ok {
		return
	}
	subjectID, ok := uuidParam(c, "subject_id")
	if !ok {
		return
	}
	n, err := h.prereqs.SyncGraph(c.Request.Context(), rd.TenantID, subjectID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"edges": n})
}
