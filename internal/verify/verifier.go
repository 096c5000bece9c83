// Package verify provides cosign/sigstore signature verification for
// downloaded release artifacts.
package verify

import "context"

// Artifact identifies a downloaded release asset to verify.
type Artifact struct {
	// Path is the local filesystem path to the downloaded file.
	Path string

	// Repo is the "owner/repo" the artifact was published from, used to
	// constrain the expected GitHub Actions signing identity.
	Repo string

	// BundlePath is the local path to the artifact's sigstore bundle
	// (the `<asset>.sigstore.json` or `<asset>.sigstore` file GitHub's
	// `gh attestation` / cosign keyless signing publishes alongside a
	// release asset). Empty if no bundle was found.
	BundlePath string
}

// Result is the verification outcome for one artifact.
type Result struct {
	Artifact   Artifact
	Verified   bool
	Skipped    bool
	SkipReason string
}

// Verifier checks cosign/sigstore signatures on downloaded artifacts.
type Verifier interface {
	// Verify checks the signature for a, returning whether it verified,
	// was skipped (and why), or an error for a hard failure.
	Verify(ctx context.Context, a Artifact) (Result, error)
}
