// Package idgen provides an injectable id-generator seam for task ids.
package idgen

import "github.com/google/uuid"

// Generator produces a unique id for a given task type. Implementations
// need not depend on taskType; it is passed through so deterministic
// test generators can derive readable ids (e.g. "id-"+taskType).
type Generator func(taskType string) string

// UUID is the default Generator: a random UUIDv4, independent of taskType.
func UUID(_ string) string {
	return uuid.NewString()
}

// Prefixed returns a deterministic Generator for tests: "id-"+taskType.
func Prefixed(taskType string) string {
	return "id-" + taskType
}
