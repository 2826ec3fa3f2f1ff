package sphero

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-sphero/protocol"
)

func response(seq byte) *protocol.Frame {
	return &protocol.Frame{Kind: protocol.KindResponse, Sequence: seq}
}

func TestCorrelationComplete(t *testing.T) {
	table := newCorrelationTable(time.Minute)

	req, err := table.register(5, "ping", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, table.len())

	f := response(5)
	got, outcome := table.complete(f)
	assert.Equal(t, completed, outcome)
	assert.Same(t, req, got)
	assert.Zero(t, table.len())

	r := <-req.done
	assert.NoError(t, r.err)
	assert.Same(t, f, r.frame)
}

func TestCorrelationDuplicateRegistration(t *testing.T) {
	table := newCorrelationTable(time.Minute)

	_, err := table.register(0, "ping", time.Second)
	require.NoError(t, err)

	_, err = table.register(0, "roll", time.Second)
	var dup *DuplicateRegistrationError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, byte(0), dup.Sequence)
	assert.Equal(t, 1, table.len())
}

func TestCorrelationExpireThenLate(t *testing.T) {
	table := newCorrelationTable(time.Minute)

	req, err := table.register(9, "ping", time.Second)
	require.NoError(t, err)
	require.True(t, table.expire(req))
	assert.False(t, table.expire(req), "second expire must lose")

	_, outcome := table.complete(response(9))
	assert.Equal(t, droppedLate, outcome)

	// Late is reported once, then the number is plain unexpected
	_, outcome = table.complete(response(9))
	assert.Equal(t, droppedUnexpected, outcome)
}

func TestCorrelationRegisterClearsLateMarker(t *testing.T) {
	table := newCorrelationTable(time.Minute)

	old, err := table.register(3, "ping", time.Second)
	require.NoError(t, err)
	require.True(t, table.expire(old))

	fresh, err := table.register(3, "roll", time.Second)
	require.NoError(t, err)

	got, outcome := table.complete(response(3))
	assert.Equal(t, completed, outcome)
	assert.Same(t, fresh, got)

	// The stale request must not remove the new one
	assert.False(t, table.expire(old))
}

func TestCorrelationExpireLosesToComplete(t *testing.T) {
	table := newCorrelationTable(time.Minute)

	req, err := table.register(1, "ping", time.Second)
	require.NoError(t, err)
	table.complete(response(1))

	assert.False(t, table.expire(req))
	r := <-req.done
	assert.NotNil(t, r.frame)
}

func TestCorrelationFailAll(t *testing.T) {
	table := newCorrelationTable(time.Minute)
	boom := errors.New("boom")

	var reqs []*pendingRequest
	for seq := byte(0); seq < 4; seq++ {
		req, err := table.register(seq, "ping", time.Second)
		require.NoError(t, err)
		reqs = append(reqs, req)
	}

	assert.Equal(t, 4, table.failAll(boom))
	assert.Zero(t, table.len())

	for _, req := range reqs {
		r := <-req.done
		assert.ErrorIs(t, r.err, boom)
		assert.False(t, table.expire(req))
	}

	_, outcome := table.complete(response(0))
	assert.Equal(t, droppedUnexpected, outcome)
}

func TestCompletionString(t *testing.T) {
	assert.Equal(t, "completed", completed.String())
	assert.Equal(t, "late", droppedLate.String())
	assert.Equal(t, "unexpected", droppedUnexpected.String())
}
