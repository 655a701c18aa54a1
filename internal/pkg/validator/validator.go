package validator

// Validator abstracts struct validation so callers stay decoupled from the
// underlying validation engine.
type Validator interface {
	// Validate checks data against its declared rules and returns an error
	// describing every violated field, or nil when data is valid.
	Validate(data any) error
}
