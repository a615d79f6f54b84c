package domain

// History is the back-navigation stack of a session, most recent last.
// Its methods never mutate the receiver, so snapshots stay independent.
type History []State

// Push returns a new stack with s on top. Idle is never recorded and a state
// equal to the current top is not pushed twice.
func (h History) Push(s State) History {
	if s == StateIdle || s == "" {
		return h.clone()
	}
	if top, ok := h.Top(); ok && top == s {
		return h.clone()
	}
	out := make(History, len(h), len(h)+1)
	copy(out, h)
	return append(out, s)
}

// Pop returns the top state and the remaining stack.
// ok is false when the stack is empty.
func (h History) Pop() (top State, rest History, ok bool) {
	if len(h) == 0 {
		return "", nil, false
	}
	n := len(h) - 1
	rest = make(History, n)
	copy(rest, h[:n])
	return h[n], rest, true
}

// Top returns the most recently pushed state.
func (h History) Top() (State, bool) {
	if len(h) == 0 {
		return "", false
	}
	return h[len(h)-1], true
}

func (h History) clone() History {
	if h == nil {
		return nil
	}
	out := make(History, len(h))
	copy(out, h)
	return out
}
