package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSessionKeepsTurns(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"Check the seal kit part number.", "About 2 litres."}}
	c := NewChatClient(gen, DefaultChatModel, noRetry)

	s, err := c.Open(context.Background(), "hydraulic leak on excavator boom")
	require.NoError(t, err)
	assert.Empty(t, gen.calls, "opening does not call the model")

	reply, err := s.Send(context.Background(), "Which seal kit?")
	require.NoError(t, err)
	assert.Equal(t, "Check the seal kit part number.", reply)

	reply, err = s.Send(context.Background(), "How much oil will I lose?")
	require.NoError(t, err)
	assert.Equal(t, "About 2 litres.", reply)

	require.Len(t, gen.calls, 2)
	sys := gen.calls[0].config.SystemInstruction.Parts[0].Text
	assert.Contains(t, sys, `"hydraulic leak on excavator boom"`)
	assert.Contains(t, sys, "personally identifiable information")

	second := gen.calls[1].contents
	require.Len(t, second, 3)
	assert.Equal(t, "user", second[0].Role)
	assert.Equal(t, "Which seal kit?", second[0].Parts[0].Text)
	assert.Equal(t, "model", second[1].Role)
	assert.Equal(t, "How much oil will I lose?", second[2].Parts[0].Text)
}

func TestChatFailedTurnIsNotRecorded(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errors.New("bad request")}, responses: []string{"ok"}}
	c := NewChatClient(gen, DefaultChatModel, noRetry)
	s, _ := c.Open(context.Background(), "engine stalls")

	_, err := s.Send(context.Background(), "first")
	require.Error(t, err)

	_, err = s.Send(context.Background(), "second")
	require.NoError(t, err)
	require.Len(t, gen.calls[1].contents, 1)
	assert.Equal(t, "second", gen.calls[1].contents[0].Parts[0].Text)
}

func TestChatEmptyReply(t *testing.T) {
	c := NewChatClient(&fakeGenerator{responses: []string{""}}, DefaultChatModel, noRetry)
	s, _ := c.Open(context.Background(), "engine stalls")
	_, err := s.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNoContent)
}
