// Package util holds small helpers shared by configuration loading: size
// parsing, environment value cleanup and zero-value defaults.
package util
