package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrSweeperNil is returned when the trigger has nothing to run
	ErrSweeperNil = errors.New("sweeper cannot be nil")

	// ErrSlotStoreNil is returned when the trigger cannot claim slots
	ErrSlotStoreNil = errors.New("slot store cannot be nil")
)
