package testutils

import (
	"sync"
	"time"
)

// SentMessage records a message a MockBot sent or edited.
type SentMessage struct {
	ChatID    int64
	MessageID int
	Text      string
}

// MockBot implements bot.Service and records every call for assertions.
type MockBot struct {
	mu         sync.Mutex
	nextID     int
	Sent       []SentMessage
	Edits      []SentMessage
	EditErrors map[int]error
}

func NewMockBot() *MockBot {
	return &MockBot{nextID: 100}
}

func (m *MockBot) SendMessage(chatID int64, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.Sent = append(m.Sent, SentMessage{ChatID: chatID, MessageID: m.nextID, Text: text})
}

func (m *MockBot) SendMessageReturningID(chatID int64, text string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.Sent = append(m.Sent, SentMessage{ChatID: chatID, MessageID: m.nextID, Text: text})
	return m.nextID, nil
}

func (m *MockBot) EditMessage(chatID int64, messageID int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.EditErrors[messageID]; ok {
		return err
	}
	m.Edits = append(m.Edits, SentMessage{ChatID: chatID, MessageID: messageID, Text: text})
	return nil
}

// SentTexts returns the text of every sent message in order.
func (m *MockBot) SentTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Sent))
	for i, s := range m.Sent {
		out[i] = s.Text
	}
	return out
}

// LastEdit returns the most recent edit, or a zero value if none happened.
func (m *MockBot) LastEdit() SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Edits) == 0 {
		return SentMessage{}
	}
	return m.Edits[len(m.Edits)-1]
}

// EditCount returns how many edits were recorded so far.
func (m *MockBot) EditCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Edits)
}

// WaitForEdit polls until an edit matching the predicate appears or the
// timeout elapses. Returns the matching edit and whether it was found.
func (m *MockBot) WaitForEdit(match func(SentMessage) bool, timeout time.Duration) (SentMessage, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		for _, e := range m.Edits {
			if match(e) {
				m.mu.Unlock()
				return e, true
			}
		}
		m.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	return SentMessage{}, false
}
