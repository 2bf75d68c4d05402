package gateway

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesByCode(t *testing.T) {
	cause := errors.New("duplicate key")
	err := fmt.Errorf("open chat: %w", newError(CodeStoreFailure, "store unavailable", cause))

	assert.ErrorIs(t, err, ErrStoreFailure)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, CodeStoreFailure, CodeOf(err))
	assert.Equal(t, "store unavailable", MessageOf(err))
}

func TestCodeOfUnclassified(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, CodeStoreFailure, CodeOf(err))
	assert.Equal(t, ErrStoreFailure.Message, MessageOf(err))
	assert.Equal(t, CodeNotAMember, CodeOf(ErrNotAMember))
}
