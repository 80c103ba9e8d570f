package ferrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Songjaeheon0923/Fin-Hub/internal/ferrors"
)

func TestCode(t *testing.T) {
	cases := []struct {
		kind ferrors.Kind
		code int
	}{
		{ferrors.KindParseError, -32700},
		{ferrors.KindInvalidRequest, -32600},
		{ferrors.KindMethodNotFound, -32601},
		{ferrors.KindInvalidParams, -32602},
		{ferrors.KindToolNotFound, -32001},
		{ferrors.KindNoHealthyInstance, -32002},
		{ferrors.KindAllInstancesOpen, -32003},
		{ferrors.KindDeadlineExceeded, -32004},
		{ferrors.KindTransient, -32007},
		{ferrors.KindCancelled, -32005},
		{ferrors.KindResourceExhausted, -32006},
		{ferrors.KindProviderRateLimited, -32010},
		{ferrors.KindAllProvidersFailed, -32011},
		{ferrors.KindDataNotFound, -32012},
		{ferrors.KindHandlerFailure, -32020},
		{ferrors.KindInternal, -32603},
		{ferrors.KindUnknown, -32603},
	}
	for _, c := range cases {
		assert.Equal(t, c.code, ferrors.Code(c.kind))
	}
}

func TestWrapUnwrapChain(t *testing.T) {
	leaf := errors.New("dial tcp: connection refused")
	mid := ferrors.Wrap(ferrors.KindDeadlineExceeded, "spoke call failed", leaf)
	top := ferrors.Wrap(ferrors.KindAllInstancesOpen, "all instances open", mid)

	require.ErrorIs(t, top, leaf)

	var fe *ferrors.Error
	require.ErrorAs(t, top, &fe)
	assert.Equal(t, ferrors.KindAllInstancesOpen, fe.Kind)
	assert.Equal(t, ferrors.KindAllInstancesOpen, ferrors.KindOf(top))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, ferrors.KindInternal, ferrors.KindOf(errors.New("boom")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, ferrors.Retryable(ferrors.KindDeadlineExceeded))
	assert.True(t, ferrors.Retryable(ferrors.KindProviderRateLimited))
	assert.True(t, ferrors.Retryable(ferrors.KindTransient))
	assert.False(t, ferrors.Retryable(ferrors.KindInvalidParams))
	assert.False(t, ferrors.Retryable(ferrors.KindDataNotFound))
}

func TestWithData(t *testing.T) {
	base := ferrors.New(ferrors.KindAllProvidersFailed, "no provider succeeded")
	tagged := base.WithData(map[string]string{"alpha": "rate_limited"})
	assert.Nil(t, base.Data)
	assert.NotNil(t, tagged.Data)
}
