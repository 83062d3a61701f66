package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	resp  Response
	err   error
	calls int
}

func (s *stubClient) Complete(ctx context.Context, req Request) (Response, error) {
	s.calls++
	return s.resp, s.err
}

// failNTimes fails the first n calls, then succeeds.
type failNTimes struct {
	n     int
	calls int
	resp  Response
}

func (s *failNTimes) Complete(ctx context.Context, req Request) (Response, error) {
	s.calls++
	if s.calls <= s.n {
		return Response{}, errors.New("provider unavailable")
	}
	return s.resp, nil
}

func TestFallbackClientPrimarySucceeds(t *testing.T) {
	primary := &stubClient{resp: Response{Text: "from primary"}}
	fallback := &stubClient{resp: Response{Text: "from fallback"}}
	c := NewFallbackClient(primary, fallback, nil)

	resp, err := c.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "from primary", resp.Text)
	assert.Equal(t, 0, fallback.calls)
}

func TestFallbackClientFallsBack(t *testing.T) {
	primary := &stubClient{err: errors.New("primary down")}
	fallback := &stubClient{resp: Response{Text: "from fallback"}}
	c := NewFallbackClient(primary, fallback, nil)

	resp, err := c.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "from fallback", resp.Text)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestFallbackClientBothFail(t *testing.T) {
	primary := &stubClient{err: errors.New("primary down")}
	fallback := &stubClient{err: errors.New("fallback down")}
	c := NewFallbackClient(primary, fallback, nil)

	_, err := c.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback down")
}

func TestFallbackClientNoFallbackConfigured(t *testing.T) {
	primary := &stubClient{err: errors.New("primary down")}
	c := NewFallbackClient(primary, nil, nil)

	_, err := c.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary down")
}
