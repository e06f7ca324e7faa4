package api_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/momentics/polltask/api"
)

func TestStructuredErrorUnwraps(t *testing.T) {
	cause := errors.New("EEXIST")
	err := api.NewError(api.ErrCodeAlreadyExists, "descriptor already registered").
		WithContext("fd", 5).
		Wrap(api.ErrAlreadyExists)

	assert.ErrorIs(t, err, api.ErrAlreadyExists)
	assert.NotErrorIs(t, err, cause)
	assert.Equal(t, api.ErrCodeAlreadyExists, err.Code)
	assert.Contains(t, err.Error(), "descriptor already registered: resource already exists")
	assert.Contains(t, err.Error(), "fd:5")

	var structured *api.Error
	assert.True(t, errors.As(error(err), &structured))
}

func TestStructuredErrorWithoutContext(t *testing.T) {
	err := &api.Error{Code: api.ErrCodeInternal, Message: "epoll ctl del"}
	assert.Equal(t, "epoll ctl del", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}
