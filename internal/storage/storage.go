package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by a Sink when its destination (sheet, file) does
// not exist yet. Callers are expected to Initialize and retry.
var ErrNotFound = errors.New("storage: destination not found")

// Kind says how a reply was produced.
type Kind int

const (
	RetrievalMatch Kind = iota
	GeneratedFallback
	ErrorFallback
)

var kindLabels = map[Kind]string{
	RetrievalMatch:    "RAG Method",
	GeneratedFallback: "Generative AI",
	ErrorFallback:     "Fallback",
}

func (k Kind) String() string {
	if s, ok := kindLabels[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind accepts the labels produced by String.
func ParseKind(s string) (Kind, error) {
	for k, label := range kindLabels {
		if label == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown response kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindLabels[k]; !ok {
		return nil, fmt.Errorf("unknown response kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Record is one answered question.
// Records are appended in the order replies were produced.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id,omitempty"`
	Question  string    `json:"question"`
	Response  string    `json:"response"`
	Kind      Kind      `json:"kind"`
}

// Sink persists records. Append must return an error wrapping ErrNotFound
// when the destination is missing; Initialize creates it and is safe to
// call when it already exists.
type Sink interface {
	Append(ctx context.Context, rec Record) error
	Initialize(ctx context.Context) error
}

// Loader reads back everything a sink has stored, oldest first.
type Loader interface {
	Load(ctx context.Context) ([]Record, error)
}
