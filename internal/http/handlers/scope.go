package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-mastery/internal/http/response"
	"github.com/yungbote/neurobridge-mastery/internal/platform/ctxutil"
)

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// tenantScope returns the caller's tenant, writing a 401 when the request is
// unauthenticated.
func tenantScope(c *gin.Context) (*ctxutil.RequestData, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.TenantID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errUnauthenticated)
		return nil, false
	}
	return rd, true
}

// studentScope resolves :student_id. Callers that are only students may read
// and write their own record.
func studentScope(c *gin.Context) (*ctxutil.RequestData, uuid.UUID, bool) {
	rd, ok := tenantScope(c)
	if !ok {
		return nil, uuid.Nil, false
	}
	studentID, ok := uuidParam(c, "student_id")
	if !ok {
		return nil, uuid.Nil, false
	}
	staff := rd.HasRole(RoleTeacher) || rd.HasRole(RoleAdmin)
	if !staff && rd.ActorID != studentID {
		response.RespondError(c, http.StatusForbidden, "forbidden", errForeignStudent)
		return nil, uuid.Nil, false
	}
	return rd, studentID, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_"+name, errBadID(name))
		return uuid.Nil, false
	}
	return id, true
}

func skillParam(c *gin.Context) (string, bool) {
	key := strings.TrimSpace(c.Param("skill_key"))
	if key == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_skill_key", errBadID("skill_key"))
		return "", false
	}
	return key, true
}

func actorOf(rd *ctxutil.RequestData) *uuid.UUID {
	if rd == nil || rd.ActorID == uuid.Nil {
		return nil
	}
	id := rd.ActorID
	return &id
}
