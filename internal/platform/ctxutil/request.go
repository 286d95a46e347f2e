package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type requestDataKey struct{}

// RequestData is the authenticated caller of one request.
type RequestData struct {
	TenantID uuid.UUID
	ActorID  uuid.UUID
	Roles    []string
}

func (rd *RequestData) HasRole(role string) bool {
	if rd == nil {
		return false
	}
	for _, r := range rd.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

type correlationKey struct{}

// Correlation sources.
const (
	SourceHTTP       = "http"
	SourceDecaySweep = "decay_sweep"
)

// Correlation ties log lines and published mastery events back to the request
// or sweep run that caused them. TraceID is empty when tracing is off.
type Correlation struct {
	Source    string
	RequestID string
	TraceID   string
}

func WithCorrelation(ctx context.Context, c Correlation) context.Context {
	return context.WithValue(ctx, correlationKey{}, c)
}

func CorrelationFrom(ctx context.Context) (Correlation, bool) {
	c, ok := ctx.Value(correlationKey{}).(Correlation)
	return c, ok
}
