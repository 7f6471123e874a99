package api

// Ignore wraps an argument to exclude it from storage_inputs: the value is
// still forwarded to the underlying function call, but the call engine
// never fingerprints or persists it (spec §4.7).
type Ignore struct {
	Value any
}

// NewArgDefault marks a parameter's default value as one introduced after
// existing calls were cached. When the caller supplies exactly this value
// (compared against the unwrapped value if a ref was supplied), the
// argument is excluded from storage_inputs so older cached calls made
// before the parameter existed remain valid (spec §4.7).
type NewArgDefault struct {
	Value any
}
