package apierr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
)

func TestFromMapsAggregateCodes(t *testing.T) {
	cases := map[domainagg.ErrorCode]int{
		domainagg.CodeValidation:    http.StatusBadRequest,
		domainagg.CodeNotFound:      http.StatusNotFound,
		domainagg.CodeConflict:      http.StatusConflict,
		domainagg.CodeConfiguration: http.StatusUnprocessableEntity,
		domainagg.CodeRetryable:     http.StatusServiceUnavailable,
		domainagg.CodeInternal:      http.StatusInternalServerError,
	}
	for code, status := range cases {
		got := From(domainagg.NewError(code, "op", "msg", nil))
		assert.Equal(t, status, got.Status, "code %s", code)
	}
}

func TestFromHidesUnknownErrors(t *testing.T) {
	got := From(errors.New("pq: password authentication failed"))
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Equal(t, "internal error", got.Error())
}

func TestFromPassesThroughAPIError(t *testing.T) {
	in := New(http.StatusForbidden, "forbidden", errors.New("nope"))
	assert.Same(t, in, From(in))
	assert.Nil(t, From(nil))
}
