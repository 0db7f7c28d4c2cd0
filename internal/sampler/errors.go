package sampler

import "errors"

var (
	// ErrLibrary wraps an unrecoverable device-level fault.
	ErrLibrary = errors.New("sampler: device fault")
	// ErrRateChanged means the device settled on a different sample
	// rate than requested and policy forbids silently adjusting to it.
	ErrRateChanged = errors.New("sampler: rate changed by device")
	// ErrPeriodChanged means the device settled on a different period
	// than requested and policy forbids silently adjusting to it.
	ErrPeriodChanged = errors.New("sampler: period changed by device")
)
