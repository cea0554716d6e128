package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name  string
	out   string
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func call(_ context.Context, p *fakeProvider) (string, error) {
	p.calls++
	return p.out, p.err
}

func TestRun_FirstSuccessShortCircuits(t *testing.T) {
	a := &fakeProvider{name: "a", err: errors.New("down")}
	b := &fakeProvider{name: "b", out: "from-b"}
	c := &fakeProvider{name: "c", out: "from-c"}

	out, name, err := Run(context.Background(), NewChain(a, b, c), call)

	require.NoError(t, err)
	assert.Equal(t, "from-b", out)
	assert.Equal(t, "b", name)
	assert.Equal(t, 0, c.calls)
}

func TestRun_AllFail(t *testing.T) {
	errA := errors.New("a down")
	errB := errors.New("b down")

	_, _, err := Run(context.Background(), NewChain(
		&fakeProvider{name: "a", err: errA},
		&fakeProvider{name: "b", err: errB},
	), call)

	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestRun_Empty(t *testing.T) {
	_, _, err := Run(context.Background(), NewChain[*fakeProvider](), call)
	assert.Error(t, err)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &fakeProvider{name: "a", out: "x"}

	_, _, err := Run(ctx, NewChain(p), call)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, p.calls)
}
