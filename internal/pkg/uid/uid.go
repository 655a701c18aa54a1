// Package uid provides small identifier generators behind narrow interfaces.
//
// NumberID is used for database primary keys, StringID for opaque tokens and
// correlation ids. Implementations live in this package (snowflake, uuid,
// object-id) so callers only depend on the interfaces.
package uid

// NumberID generates unique numeric identifiers.
type NumberID interface {
	// Generate returns a new unique int64 identifier.
	Generate() int64
}

// StringID generates unique string identifiers.
type StringID interface {
	// Generate returns a new unique string identifier.
	Generate() string
}
