package llm

import (
	"context"
	"errors"
)

var ErrEmptyHistory = errors.New("history is empty")

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role        string // "user", "assistant", "system"
	Content     string
	Attachments []Attachment
}

type Attachment struct {
	Url  string // data URI
	Type string
	Name string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func ApplyOptions(defaults Options, opts ...Option) *Options {
	options := defaults
	for _, opt := range opts {
		opt(&options)
	}
	return &options
}

// PartialFunc receives the cumulative text generated so far, not a delta.
type PartialFunc func(text string)

// LLMProvider streams a reply for a chat history. Cancelling ctx stops the
// stream; Stream then returns the text received so far with ctx's error.
type LLMProvider interface {
	Stream(ctx context.Context, history []Message, onPartial PartialFunc, options ...Option) (string, error)
}
