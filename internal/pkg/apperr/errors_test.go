package apperr

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsKind_WalksCauseChain(t *testing.T) {
	cause := InsufficientStock("B1", 2, 1)
	rejected := Wrap(cause, KindOrderRejected, CodeOrderRejected, "order rejected")
	wrapped := errors.Wrap(rejected, "create order")

	assert.True(t, IsKind(wrapped, KindOrderRejected))
	assert.True(t, IsKind(wrapped, KindInsufficientStock))
	assert.False(t, IsKind(wrapped, KindNotFound))
	assert.Equal(t, KindOrderRejected, KindOf(wrapped))
	assert.Equal(t, KindInsufficientStock, RootKind(wrapped))
	assert.Equal(t, CodeOrderRejected, CodeOf(wrapped))
}

func TestIsKind_PlainError(t *testing.T) {
	err := errors.New("boom")
	assert.False(t, IsKind(err, KindNotFound))
	assert.Equal(t, KindUnknown, KindOf(err))
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.False(t, IsKind(nil, KindNotFound))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", OrderNotFound("ORD-1"), http.StatusNotFound},
		{"invalid input", InvalidInput("bad"), http.StatusBadRequest},
		{"invalid transition", New(KindInvalidTransition, CodeInvalidTransition, "nope"), http.StatusBadRequest},
		{"invalid state", New(KindInvalidState, CodeInvalidState, "nope"), http.StatusConflict},
		{"insufficient stock", InsufficientStock("B1", 2, 1), http.StatusConflict},
		{"dependency", Database(errors.New("down"), "query"), http.StatusServiceUnavailable},
		{"rejected by stock", Wrap(InsufficientStock("B1", 2, 1), KindOrderRejected, CodeOrderRejected, "rejected"), http.StatusConflict},
		{"rejected by unknown product", Wrap(ProductNotFound("B9"), KindOrderRejected, CodeOrderRejected, "rejected"), http.StatusUnprocessableEntity},
		{"rejected by outage", Wrap(Unavailable(errors.New("x"), "catalog"), KindOrderRejected, CodeOrderRejected, "rejected"), http.StatusServiceUnavailable},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestFromCode(t *testing.T) {
	err := FromCode(CodeProductNotFound, "product X not found")
	assert.Equal(t, KindNotFound, err.Kind)
	assert.Equal(t, "product X not found", err.Error())

	unknown := FromCode("SOMETHING_ELSE", "?")
	assert.Equal(t, KindUnknown, unknown.Kind)
}
