package domain

import (
	"errors"
	"fmt"
)

var (
	ErrQuotaExceeded      = errors.New("config quota exceeded")
	ErrConfigNotFound     = errors.New("config not found")
	ErrProvisioningFailed = errors.New("provisioning failed")
	ErrNoFreePort         = errors.New("no free port in range")

	ErrStorage   = errors.New("storage error")
	ErrPanelAuth = errors.New("panel authentication failed")
	ErrPanelAPI  = errors.New("panel api error")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("access forbidden")
)

// StorageError wraps any I/O or constraint failure from a config store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// NewStorageError returns nil when err is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// PanelAuthError is returned when the panel login fails.
type PanelAuthError struct {
	Status int // 0 on transport failure
	Err    error
}

func (e *PanelAuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("panel login: %v", e.Err)
	}
	return fmt.Sprintf("panel login: status %d", e.Status)
}

func (e *PanelAuthError) Unwrap() error { return e.Err }

func (e *PanelAuthError) Is(target error) bool { return target == ErrPanelAuth }

// PanelAPIError is returned for any failed panel operation after login.
type PanelAPIError struct {
	Op     string
	Status int
	Msg    string
	Err    error
}

func (e *PanelAPIError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("panel %s: %v", e.Op, e.Err)
	case e.Status != 0 && e.Status != 200:
		return fmt.Sprintf("panel %s: status %d: %s", e.Op, e.Status, e.Msg)
	default:
		return fmt.Sprintf("panel %s: %s", e.Op, e.Msg)
	}
}

func (e *PanelAPIError) Unwrap() error { return e.Err }

func (e *PanelAPIError) Is(target error) bool { return target == ErrPanelAPI }
