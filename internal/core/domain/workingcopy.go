package domain

// WorkingCopy is a disposable view of a conversation prepared for a
// single model call. It is deep-copied from the authoritative record,
// so the strip operations below never reach persisted state.
type WorkingCopy struct {
	SessionID string
	Messages  []Message
}

// NewWorkingCopy deep-copies msgs into a fresh working copy.
func NewWorkingCopy(sessionID string, msgs []Message) *WorkingCopy {
	out := &WorkingCopy{SessionID: sessionID, Messages: make([]Message, 0, len(msgs))}
	for _, m := range msgs {
		out.Messages = append(out.Messages, m.Clone())
	}
	return out
}

// Append adds a message to the working copy.
func (w *WorkingCopy) Append(msg Message) {
	w.Messages = append(w.Messages, msg)
}

// RemoveSystemMessage removes the first system message, if any, and
// returns it. Model backends that take system instructions separately
// use this to pull the instruction out of the history.
func (w *WorkingCopy) RemoveSystemMessage() (Message, bool) {
	for i, m := range w.Messages {
		if m.Role == RoleSystem {
			w.Messages = append(w.Messages[:i], w.Messages[i+1:]...)
			return m, true
		}
	}
	return Message{}, false
}

// RemoveLastMessage removes and returns the trailing message, if any.
func (w *WorkingCopy) RemoveLastMessage() (Message, bool) {
	if len(w.Messages) == 0 {
		return Message{}, false
	}
	last := w.Messages[len(w.Messages)-1]
	w.Messages = w.Messages[:len(w.Messages)-1]
	return last, true
}
