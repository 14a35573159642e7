package project

import "errors"

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrCycleNotFound    = errors.New("project cycle not found")
	ErrNoActiveCycle    = errors.New("project has no active cycle")
	ErrProjectFinalized = errors.New("project is completed or cancelled")
	ErrInvalidAmount    = errors.New("contribution amount must be positive and finite")
)
