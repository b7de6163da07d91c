package change

import (
	"errors"
	"fmt"
)

// ErrInvalid wraps all validation failures for errors.Is checks.
var ErrInvalid = errors.New("change: invalid")

// Validate checks that a change is structurally sound: known type, non-empty
// selector, and a payload matching the type. It does not touch any document.
func Validate(c Change) error {
	if c.Selector == "" {
		return fmt.Errorf("%w: empty selector", ErrInvalid)
	}
	if err := c.checkType(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Mode != "" && c.Mode != ModeReplace && c.Mode != ModeMerge {
		return fmt.Errorf("%w: bad mode %q", ErrInvalid, c.Mode)
	}

	switch c.Type {
	case TypeMove:
		if c.TargetSelector == "" {
			return fmt.Errorf("%w: move without targetSelector", ErrInvalid)
		}
		if !validPosition(c.Position) {
			return fmt.Errorf("%w: move position %q", ErrInvalid, c.Position)
		}
	case TypeInsert, TypeCreate:
		if c.HTML == "" {
			return fmt.Errorf("%w: %s without html", ErrInvalid, c.Type)
		}
		if !validPosition(c.Position) {
			return fmt.Errorf("%w: %s position %q", ErrInvalid, c.Type, c.Position)
		}
	}

	if c.Position != "" && !validPosition(c.Position) {
		return fmt.Errorf("%w: position %q", ErrInvalid, c.Position)
	}
	return nil
}

// ValidateList validates every change; the first failure is returned with
// its index.
func ValidateList(list []Change) error {
	for i, c := range list {
		if err := Validate(c); err != nil {
			return fmt.Errorf("change %d: %w", i, err)
		}
	}
	return nil
}

func validPosition(p Position) bool {
	switch p {
	case PosBefore, PosAfter, PosFirstChild, PosLastChild:
		return true
	}
	return false
}
