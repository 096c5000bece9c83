package verify

import "context"

// noopVerifier is a Verifier that skips all verification.
// Used when no bundle is available for an artifact (warn-and-continue
// per the github-release driver's verification contract).
type noopVerifier struct {
	reason string
}

// NewNoopVerifier creates a Verifier that skips all verification with the given reason.
func NewNoopVerifier(reason string) Verifier {
	return &noopVerifier{reason: reason}
}

// Verify returns a skipped Result.
func (v *noopVerifier) Verify(_ context.Context, a Artifact) (Result, error) {
	return Result{Artifact: a, Skipped: true, SkipReason: v.reason}, nil
}
