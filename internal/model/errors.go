package model

import "errors"

// Failure taxonomy surfaced by the core. Callers branch with errors.Is;
// the facade maps these onto its stable error envelope.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrConflict          = errors.New("conflict")
)
