package core

import (
	"errors"
	"fmt"

	"djfriend/pkg/fuzzy"
	"djfriend/pkg/musiclink"
)

var (
	// ErrNotFound is returned by a MetadataProvider for an unknown track.
	ErrNotFound = errors.New("not found")
	// ErrProvider matches every *ProviderError via errors.Is.
	ErrProvider = errors.New("provider error")
	// ErrCancelled is returned when work was superseded by a newer request.
	ErrCancelled = errors.New("cancelled")

	ErrNoLocalMatch = fuzzy.ErrNoLocalMatch
	ErrNoCandidates = musiclink.ErrNoCandidates
	ErrNoLinkFound  = musiclink.ErrNoLinkFound
)

// ProviderError wraps a network, timeout or parse failure from an external provider.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func NewProviderError(provider, op string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}
