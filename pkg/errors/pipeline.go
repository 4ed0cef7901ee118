package errors

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// InputError reports a dataset or observation that cannot enter the pipeline:
// a missing or non-numeric target column, a dataset that is empty after
// cleaning, or an observation that does not parse.
type InputError struct {
	Op     string
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("imrcast: %s: invalid input %q: %s", e.Op, e.Field, e.Reason)
	}
	return fmt.Sprintf("imrcast: %s: invalid input: %s", e.Op, e.Reason)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *InputError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("field", e.Field).
		Str("reason", e.Reason).
		Str("type", "InputError")
}

// NewInputError creates an InputError with a stack trace.
func NewInputError(op, field, reason string) error {
	return errors.WithStack(&InputError{Op: op, Field: field, Reason: reason})
}

// ArtifactKind classifies an ArtifactError.
type ArtifactKind string

const (
	MissingArtifact ArtifactKind = "MissingArtifact"
	ShapeMismatch   ArtifactKind = "ShapeMismatch"
	UnknownFeature  ArtifactKind = "UnknownFeature"
	CorruptArtifact ArtifactKind = "CorruptArtifact"
)

// ArtifactError is raised while reading persisted training state or while
// fitting an observation to it.
type ArtifactError struct {
	Kind   ArtifactKind
	Key    string
	Detail string
}

func (e *ArtifactError) Error() string {
	msg := fmt.Sprintf("imrcast: %s", e.Kind)
	if e.Key != "" {
		msg += fmt.Sprintf(" %q", e.Key)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap exposes the sentinel matching Kind so callers can use Is.
func (e *ArtifactError) Unwrap() error {
	switch e.Kind {
	case MissingArtifact:
		return ErrMissingArtifact
	case ShapeMismatch:
		return ErrShapeMismatch
	case UnknownFeature:
		return ErrUnknownFeature
	case CorruptArtifact:
		return ErrCorruptArtifact
	}
	return nil
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *ArtifactError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("kind", string(e.Kind)).
		Str("key", e.Key).
		Str("detail", e.Detail).
		Str("type", "ArtifactError")
}

// NewArtifactError creates an ArtifactError with a stack trace.
func NewArtifactError(kind ArtifactKind, key, detail string) error {
	return errors.WithStack(&ArtifactError{Kind: kind, Key: key, Detail: detail})
}

// NewMissingArtifact reports a key that was never written by a completed run.
func NewMissingArtifact(key string) error {
	return NewArtifactError(MissingArtifact, key, "not found in artifact store")
}

// NewShapeMismatch reports an observation whose length differs from the
// number of features the scaler was fitted with.
func NewShapeMismatch(expected, got int) error {
	return NewArtifactError(ShapeMismatch, "", fmt.Sprintf("expected %d features, got %d", expected, got))
}

// TrainingFailure is returned when a training run cannot persist a model.
// Failed lists the candidates whose fit or predict step failed.
type TrainingFailure struct {
	Reason string
	Failed []string
	Err    error
}

func (e *TrainingFailure) Error() string {
	msg := "imrcast: training failed: " + e.Reason
	if len(e.Failed) > 0 {
		msg += fmt.Sprintf(" (failed candidates: %s)", strings.Join(e.Failed, ", "))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TrainingFailure) Unwrap() error {
	return e.Err
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *TrainingFailure) MarshalZerologObject(event *zerolog.Event) {
	event.Str("reason", e.Reason).
		Strs("failed", e.Failed).
		Str("type", "TrainingFailure")
}

// NewTrainingFailure creates a TrainingFailure with a stack trace.
func NewTrainingFailure(reason string, failed []string, err error) error {
	return errors.WithStack(&TrainingFailure{Reason: reason, Failed: failed, Err: err})
}
