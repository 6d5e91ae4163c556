package llm

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
)

// MockReply is one scripted answer.
type MockReply struct {
	Content string
	Usage   Usage
	Err     error
}

// Mock is an offline Provider. Scripted replies are served first, in
// order; after that Fallback answers every request. Without a Fallback an
// exhausted Mock reports itself unavailable.
type Mock struct {
	Fallback func(Request) (json.RawMessage, error)

	mu       sync.Mutex
	replies  []MockReply
	requests []Request
}

func NewMock(replies ...MockReply) *Mock {
	return &Mock{replies: replies}
}

// Queue appends scripted replies.
func (m *Mock) Queue(replies ...MockReply) {
	m.mu.Lock()
	m.replies = append(m.replies, replies...)
	m.mu.Unlock()
}

// Requests returns a copy of every request received so far.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.requests)
}

func (m *Mock) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	var (
		reply  MockReply
		script = len(m.replies) > 0
	)
	if script {
		reply = m.replies[0]
		m.replies = m.replies[1:]
	}
	m.mu.Unlock()

	var content json.RawMessage
	switch {
	case script && reply.Err != nil:
		return nil, reply.Err
	case script:
		content = json.RawMessage(reply.Content)
	case m.Fallback != nil:
		out, err := m.Fallback(req)
		if err != nil {
			return nil, err
		}
		content = out
	default:
		return nil, &ErrProviderUnavailable{}
	}

	if err := checkOutput(req, content, StopEnd); err != nil {
		return nil, err
	}
	return &Response{Content: content, Usage: reply.Usage, Model: "mock", Stop: StopEnd}, nil
}

func (m *Mock) ModelID() string { return "mock" }
