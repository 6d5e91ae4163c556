// Package llm talks to hosted language models. The engine uses it to ask
// for starting mastery estimates; every call goes through the same
// timeout, retry and event-logging chain regardless of vendor.
package llm

import (
	"context"
	"encoding/json"
)

// Provider generates one completion per call.
type Provider interface {
	// Generate sends req and returns the model output. When req.Schema is
	// set, Content is JSON that has already been validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID is the vendor model identifier requests are sent to.
	ModelID() string
}

const defaultMaxTokens = 1024

// Request is a single-shot prompt.
type Request struct {
	// Purpose labels the request in logs and in the llm_request_events
	// table, e.g. "initial-mastery".
	Purpose string

	System   string
	Messages []Message

	// Schema asks the vendor for structured output. Nil means free text.
	Schema *Schema

	// MaxTokens caps the completion. Zero uses defaultMaxTokens.
	MaxTokens int

	// Temperature is passed through when positive; otherwise the vendor
	// default applies.
	Temperature float64
}

// NewRequest builds a request with one user message.
func NewRequest(purpose, system, prompt string) Request {
	return Request{
		Purpose:  purpose,
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: prompt}},
	}
}

func (r Request) maxTokens() int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	return defaultMaxTokens
}

func (r Request) purpose() string {
	if r.Purpose == "" {
		return "unknown"
	}
	return r.Purpose
}

type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// StopReason is the vendor finish reason folded onto two values.
type StopReason string

const (
	StopEnd       StopReason = "end"
	StopMaxTokens StopReason = "max_tokens"
)

type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string
	Stop    StopReason
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

// checkOutput rejects structured output that was cut short or does not
// match the requested schema. Free-text output passes unchanged.
func checkOutput(req Request, content json.RawMessage, stop StopReason) error {
	if req.Schema == nil {
		return nil
	}
	if stop == StopMaxTokens {
		return &ErrMaxTokensExceeded{Content: content}
	}
	return req.Schema.Validate(content)
}
