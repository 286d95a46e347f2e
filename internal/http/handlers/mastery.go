package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-mastery/internal/http/response"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/services"
)

type MasteryHandler struct {
	log     *logger.Logger
	mastery services.MasteryService
}

func NewMasteryHandler(log *logger.Logger, mastery services.MasteryService) *MasteryHandler {
	return &MasteryHandler{log: log.With("handler", "MasteryHandler"), mastery: mastery}
}

type recordInteractionBody struct {
	SubjectID        *uuid.UUID     `json:"subject_id"`
	ModuleID         *uuid.UUID     `json:"module_id"`
	SkillKey         string         `json:"skill_key" binding:"required,max=128"`
	Outcome          string         `json:"outcome" binding:"required,oneof=correct incorrect partial CORRECT INCORRECT PARTIAL"`
	Score            float64        `json:"score" binding:"gte=0,lte=100"`
	TimeTakenSeconds float64        `json:"time_taken_seconds" binding:"gte=0"`
	HintsUsed        int            `json:"hints_used" binding:"gte=0"`
	Difficulty       string         `json:"difficulty" binding:"omitempty,oneof=easy medium hard EASY MEDIUM HARD"`
	AttemptedAt      *time.Time     `json:"attempted_at"`
	Metadata         map[string]any `json:"metadata"`
}

// POST /api/students/:student_id/interactions
func (h *MasteryHandler) RecordInteraction(c *gin.Context) {
	rd, studentID, ok := studentScope(c)
	if !ok {
		return
	}
	var body recordInteractionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	req := services.RecordInteractionRequest{
		TenantID:         rd.TenantID,
		StudentID:        studentID,
		ModuleID:         body.ModuleID,
		SkillKey:         body.SkillKey,
		Outcome:          body.Outcome,
		Score:            body.Score,
		TimeTakenSeconds: body.TimeTakenSeconds,
		HintsUsed:        body.HintsUsed,
		Difficulty:       body.Difficulty,
		Metadata:         body.Metadata,
	}
	if body.SubjectID != nil {
		req.SubjectID = *body.SubjectID
	}
	if body.AttemptedAt != nil {
		req.AttemptedAt = *body.AttemptedAt
	}
	res, err := h.mastery.RecordInteraction(c.Request.Context(), req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"result": res})
}

// GET /api/students/:student_id/subjects/:subject_id/mastery
func (h *MasteryHandler) GetStudentMastery(c *gin.Context) {
	rd, studentID, ok := studentScope(c)
	if !ok {
		return
	}
	subjectID, ok := uuidParam(c, "subject_id")
	if !ok {
		return
	}
	rows, err := h.mastery.GetStudentMastery(c.Request.Context(), rd.TenantID, studentID, subjectID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"mastery": rows})
}

type adjustMasteryBody struct {
	Level  *float64 `json:"level" binding:"required,gte=0,lte=100"`
	Reason string   `json:"reason" binding:"max=512"`
}

// PUT /api/students/:student_id/skills/:skill_key/mastery
func (h *MasteryHandler) AdjustMastery(c *gin.Context) {
	rd, studentID, ok := studentScope(c)
	if !ok {
		return
	}
	skillKey, ok := skillParam(c)
	if !ok {
		return
	}
	var body adjustMasteryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	view, err := h.mastery.AdjustMastery(c.Request.Context(), services.AdjustMasteryRequest{
		TenantID:  rd.TenantID,
		StudentID: studentID,
		SkillKey:  skillKey,
		NewLevel:  *body.Level,
		Reason:    body.Reason,
		ActorID:   actorOf(rd),
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"mastery": view})
}

// DELETE /api/students/:student_id/skills/:skill_key/mastery
func (h *MasteryHandler) ResetSkillMastery(c *gin.Context) {
	rd, studentID, ok := studentScope(c)
	if !ok {
		return
	}
	skillKey, ok := skillParam(c)
	if !ok {
		return
	}
	err := h.mastery.ResetSkillMastery(c.Request.Context(), services.ResetMasteryRequest{
		TenantID:  rd.TenantID,
		StudentID: studentID,
		SkillKey:  skillKey,
		Reason:    c.Query("reason"),
		ActorID:   actorOf(rd),
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
