package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesByKind(t *testing.T) {
	err := fmt.Errorf("toggle room: %w", Forbidden("not owner"))
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestValidation_MessageIncludesField(t *testing.T) {
	err := Validation("availableBeds", "exceeds capacity")
	assert.Equal(t, "availableBeds: exceeds capacity", err.Error())
	assert.Equal(t, "availableBeds", FieldOf(err))
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestPersistence_DeadlineIsRetryable(t *testing.T) {
	err := Persistence("update rooms", context.DeadlineExceeded)
	assert.True(t, IsRetryable(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	plain := Persistence("update rooms", errors.New("constraint failed"))
	assert.False(t, IsRetryable(plain))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, "unknown", KindOf(nil).String())
}

func TestFromStore(t *testing.T) {
	ctx := context.Background()
	forbidden := Forbidden("not owner")
	assert.Same(t, forbidden, FromStore(ctx, "toggle room", forbidden).(*Error))

	err := FromStore(ctx, "toggle room", errors.New("disk I/O error"))
	assert.Equal(t, KindPersistence, KindOf(err))
	assert.False(t, IsRetryable(err))
	assert.Equal(t, "toggle room failed; no change was applied", err.Error())

	expired, cancel := context.WithTimeout(ctx, 0)
	defer cancel()
	<-expired.Done()
	err = FromStore(expired, "toggle room", errors.New("interrupted"))
	assert.True(t, IsRetryable(err))
	assert.Equal(t, "toggle room timed out; no change was applied", err.Error())
}
