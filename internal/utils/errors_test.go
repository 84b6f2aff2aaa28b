package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[error]int{
		ErrValidation:          400,
		ErrMissingTarget:       400,
		ErrNotFound:            404,
		ErrInvalidTransition:   409,
		ErrInvalidAgent:        409,
		ErrReferentialConflict: 409,
		ErrDuplicateStock:      409,
		ErrPeriodClosed:        409,
		ErrStoreUnavailable:    503,
		errors.New("boom"):     500,
	}
	for err, want := range cases {
		wrapped := fmt.Errorf("%w: context", err)
		assert.Equal(t, want, HTTPStatus(wrapped), err.Error())
	}
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "INVALID_TRANSITION", ErrorCode(fmt.Errorf("%w: unit is sold", ErrInvalidTransition)))
	assert.Equal(t, "INTERNAL_ERROR", ErrorCode(errors.New("boom")))
}
