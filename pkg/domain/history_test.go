package domain_test

import (
	"testing"

	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestHistory_PushIsIdempotentAndSkipsIdle(t *testing.T) {
	var h domain.History
	h = h.Push(domain.StateIdle)
	assert.Empty(t, h)

	h = h.Push(domain.StateEnteringName)
	h = h.Push(domain.StateEnteringName)
	assert.Equal(t, domain.History{domain.StateEnteringName}, h)

	h = h.Push(domain.StateEnteringPosition)
	assert.Equal(t, domain.History{domain.StateEnteringName, domain.StateEnteringPosition}, h)
}

func TestHistory_PushDoesNotAlias(t *testing.T) {
	base := make(domain.History, 1, 8)
	base[0] = domain.StateChoosingManager

	a := base.Push(domain.StateEnteringName)
	b := base.Push(domain.StateTypingMessage)

	assert.Equal(t, domain.StateEnteringName, a[1])
	assert.Equal(t, domain.StateTypingMessage, b[1])
	assert.Len(t, base, 1)
}

func TestHistory_Pop(t *testing.T) {
	h := domain.History{domain.StateChoosingManager, domain.StateEnteringName}

	top, rest, ok := h.Pop()
	assert.True(t, ok)
	assert.Equal(t, domain.StateEnteringName, top)
	assert.Equal(t, domain.History{domain.StateChoosingManager}, rest)
	assert.Len(t, h, 2, "receiver must stay untouched")

	_, _, ok = domain.History(nil).Pop()
	assert.False(t, ok)
}
