// Package results separates business outcomes from infrastructure errors.
// Service logic returns an OperationResult for expected outcomes (success or
// a domain failure such as "not eligible") and a plain error only when the
// operation itself could not run.
package results

// OperationResult carries exactly one of Success or Failure.
type OperationResult[S any, F any] struct {
	Success *S
	Failure *F
}

// SuccessResult wraps a successful value.
func SuccessResult[S any, F any](s S) OperationResult[S, F] {
	return OperationResult[S, F]{Success: &s}
}

// FailureResult wraps a domain failure.
func FailureResult[S any, F any](f F) OperationResult[S, F] {
	return OperationResult[S, F]{Failure: &f}
}

// IsSuccess reports whether the result holds a success value.
func (r OperationResult[S, F]) IsSuccess() bool { return r.Success != nil }

// IsFailure reports whether the result holds a domain failure.
func (r OperationResult[S, F]) IsFailure() bool { return r.Failure != nil }
