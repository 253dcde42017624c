package core

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownUnitType = errors.New("unknown unit type")
	ErrUnitNotInGroup  = errors.New("unit not in group")
	ErrInvalidSide     = errors.New("invalid side")
	ErrEmptyGroup      = errors.New("unit group is empty")
)

// WrapUnitError adds the unit's identity to an error so logs can point at the
// offending unit.
func WrapUnitError(u *Unit, err error) error {
	if err == nil {
		return nil
	}
	if u == nil || u.Type == nil {
		return err
	}
	return fmt.Errorf("unit %d (%s, %s): %w", u.ID, u.Type.Name, u.Owner, err)
}
