package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Lookup errors
	ErrGameNotFound    = errors.New("game not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrBindingNotFound = errors.New("connection binding not found")
	ErrNotInGame       = errors.New("connection is not seated in this game")
	ErrSlotOccupied    = errors.New("second seat is already occupied")
	ErrAlreadySeated   = errors.New("connection is already seated in another game")
	ErrInvalidTimeMode = errors.New("time mode must be 5, 10 or 15 minutes")
	ErrInvalidOffer    = errors.New("offer type must be redo or draw")
	ErrVersionConflict = errors.New("game was modified concurrently")
	ErrLockNotAcquired = errors.New("game is locked by another operation")

	// Game state errors
	ErrInvalidState    = errors.New("action not allowed in the current game state")
	ErrNotYourTurn     = errors.New("not this player's turn")
	ErrFieldOccupied   = errors.New("field is already occupied")
	ErrInvalidPosition = errors.New("invalid board position")
	ErrStillYourTurn   = errors.New("offering player still has the turn")
	ErrNoMovesToUndo   = errors.New("no moves to undo")
)

// StoreError wraps a failure of the shared key-value store
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err as a store failure, passing nil and domain errors through
func NewStoreError(op string, err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// UpstreamError wraps a failure of the profile store
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("profile store %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError wraps err as a profile store failure, passing nil and domain errors through
func NewUpstreamError(op string, err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	return &UpstreamError{Op: op, Err: err}
}

var domainErrors = []error{
	ErrGameNotFound, ErrProfileNotFound, ErrBindingNotFound, ErrVersionConflict, ErrLockNotAcquired,
}

func isDomainError(err error) bool {
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return true
		}
	}
	return false
}
