// Package validation checks configuration structs and command-line values.
//
// Struct tag validation reports configuration keys, so a failure on
// AppConfig.Process.GracePeriod names "process.grace_period":
//
//	if err := validation.Validate(cfg); err != nil { ... }
//
// Programmatic validation collects several field errors into one AppError:
//
//	err := validation.New().Min("column", column, 0).Required("command", command).Err()
package validation
