package models

import "fmt"

// ConfigError reports broken referential integrity or an otherwise
// unusable configuration. It is fatal and raised before any student
// code executes.
type ConfigError struct {
	Reference string
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Reference, e.Reason)
}

// ProvisionError reports a failed environment installation. It is fatal
// for every submission in that language but leaves other languages
// untouched.
type ProvisionError struct {
	Language string
	Err      error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("failed to provision environment for language %s: %s", e.Language, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }
