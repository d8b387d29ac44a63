// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package position acquires the viewer's own position once per session.
package position

import (
	"context"
	"errors"
	"fmt"

	"github.com/relabs-tech/vital_tracker/internal/geo"
)

var (
	// ErrPermissionDenied means access to the position source was refused.
	ErrPermissionDenied = errors.New("permission to access location was denied")
	// ErrPositionUnavailable covers every other acquisition failure.
	ErrPositionUnavailable = errors.New("position unavailable")
)

// Status is the outcome of an acquisition.
type Status int

const (
	StatusAcquired Status = iota
	StatusDenied
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusAcquired:
		return "acquired"
	case StatusDenied:
		return "denied"
	case StatusUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is Denied | Unavailable | Acquired(Coordinate).
type Result struct {
	Status     Status
	Coordinate geo.Coordinate
	// Cause is the underlying failure for Denied and Unavailable.
	Cause error
}

// Acquired wraps a known position.
func Acquired(c geo.Coordinate) Result {
	return Result{Status: StatusAcquired, Coordinate: c}
}

// Denied reports a refused permission.
func Denied(cause error) Result {
	return Result{Status: StatusDenied, Cause: cause}
}

// Unavailable reports any other failure.
func Unavailable(cause error) Result {
	return Result{Status: StatusUnavailable, Cause: cause}
}

// Err returns nil for Acquired, otherwise an error matching
// ErrPermissionDenied or ErrPositionUnavailable.
func (r Result) Err() error {
	var sentinel error
	switch r.Status {
	case StatusAcquired:
		return nil
	case StatusDenied:
		sentinel = ErrPermissionDenied
	default:
		sentinel = ErrPositionUnavailable
	}
	if r.Cause == nil || errors.Is(r.Cause, sentinel) {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, r.Cause)
}

// Provider performs a one-shot, permission-gated position query.
type Provider interface {
	Acquire(ctx context.Context) Result
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) Result

// Acquire implements Provider.
func (f ProviderFunc) Acquire(ctx context.Context) Result {
	return f(ctx)
}

// Static always returns the same position; used when the viewer has no GPS
// receiver attached.
type Static struct {
	Coordinate geo.Coordinate
}

// NewStatic validates c.
func NewStatic(c geo.Coordinate) (*Static, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Static{Coordinate: c}, nil
}

// Acquire implements Provider.
func (s *Static) Acquire(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unavailable(err)
	}
	return Acquired(s.Coordinate)
}
