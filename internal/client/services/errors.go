package services

import "errors"

var (
	ErrAwardRevoked   = errors.New("you may not share revoked badges")
	ErrAwardExpired   = errors.New("you may not share expired badges")
	ErrUnverified     = errors.New("unable to verify your badge")
	ErrPledgeExists   = errors.New("award already has a pledge")
	ErrNotPending     = errors.New("award is already issued")
	ErrTitleRequired  = errors.New("you must enter a title")
	ErrNothingToClaim = errors.New("nothing to claim")
)
