package config

import "fmt"

// MissingValueError is returned when a required setting is empty
type MissingValueError struct {
	Key string
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("config: %s is required", e.Key)
}

func errMissing(key string) error {
	return &MissingValueError{Key: key}
}

// InvalidValueError is returned when a setting cannot be used
type InvalidValueError struct {
	Key   string
	Value string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("config: invalid value %q for %s", e.Value, e.Key)
}
