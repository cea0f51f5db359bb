// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `Load` calls `validateStruct` right after defaults are applied.  Any
// failure aborts startup.  Besides the built-in rules, `pages.lock_ttl`
// must be at least one minute.

package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterStructValidation(func(sl validator.StructLevel) {
		p := sl.Current().Interface().(Pages)
		if p.LockTTL < time.Minute {
			sl.ReportError(p.LockTTL, "LockTTL", "lock_ttl", "min_ttl", "1m")
		}
	}, Pages{})
	return val
}

//
// public API
//

// validateStruct returns the validation errors, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
