package verifier

import "context"

// FakeVerifier is a scriptable in-memory Verifier for coordinator tests.
type FakeVerifier struct {
	// Result is returned for every call unless Err is set.
	Result Result
	// Err, if non-nil, is returned instead of Result.
	Err error

	// Requests records every call for assertions.
	Requests []Request
}

func (f *FakeVerifier) Verify(ctx context.Context, req Request) (Result, error) {
	f.Requests = append(f.Requests, req)
	if f.Err != nil {
		return Result{}, f.Err
	}
	return f.Result, nil
}
