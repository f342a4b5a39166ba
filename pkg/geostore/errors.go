package geostore

import "fmt"

// StoreNotFoundError indicates an add or search referenced a store key
// that was never registered.
type StoreNotFoundError struct {
	Key string
}

func (e *StoreNotFoundError) Error() string {
	return fmt.Sprintf("no element store registered under %q", e.Key)
}
