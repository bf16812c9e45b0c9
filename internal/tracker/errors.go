package tracker

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrNoDevice            = errors.New("request has no device id")
	ErrUnknownOption       = errors.New("unknown goal option")
	ErrEmptySelection      = errors.New("selection needs an option or custom text")
	ErrPlanInProgress      = errors.New("an accepted plan is in progress")
	ErrChallengeInProgress = errors.New("challenge is still running")
	ErrPlanArchived        = errors.New("plan has been archived")
)
