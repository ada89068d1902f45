package stdx

// Must0 panics if the provided error is not nil. It is intended for call
// sites where an error indicates a programming mistake rather than a
// recoverable condition.
//
// Parameters:
//   - err: The error to check. If it is not nil, the function will panic.
func Must0(err error) {
	if err != nil {
		panic(err)
	}
}

// Must1 takes a value and an error. If the error is not nil, it panics with
// the error. Otherwise it returns the value.
//
// This is useful for initialization expressions where failure is not
// expected, for example building a renderer or compiling a template.
//
// T: The type of the value to be returned.
// v: The value to be returned if err is nil.
// err: The error to check.
func Must1[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// Must2 takes two values and an error. If the error is not nil, it panics
// with the error. Otherwise it returns both values.
//
// T: The type of the first value.
// V: The type of the second value.
func Must2[T any, V any](t T, v V, err error) (T, V) {
	if err != nil {
		panic(err)
	}
	return t, v
}
