package session

import "errors"

var (
	ErrNoModalities       = errors.New("select at least one modality")
	ErrDuplicateModality  = errors.New("modality selected more than once")
	ErrFlowStarted        = errors.New("selection already made for this flow")
	ErrNotSelected        = errors.New("modality is not part of the selection")
	ErrAlreadyCompleted   = errors.New("modality already completed")
	ErrSubmissionInFlight = errors.New("a submission for this modality is already in progress")
	ErrStaleEpoch         = errors.New("session was reset while the request was pending")
	ErrEmptyResult        = errors.New("result label is required")
	ErrNotFound           = errors.New("session not found")
)
