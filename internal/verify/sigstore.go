package verify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sync"

	"github.com/sigstore/sigstore-go/pkg/bundle"
	"github.com/sigstore/sigstore-go/pkg/root"
	"github.com/sigstore/sigstore-go/pkg/tuf"
	sgverify "github.com/sigstore/sigstore-go/pkg/verify"
)

// expectedOIDCIssuer is the OIDC issuer for GitHub Actions keyless signing.
const expectedOIDCIssuer = "https://token.actions.githubusercontent.com"

var _ Verifier = (*SigstoreVerifier)(nil)

// SigstoreVerifier verifies cosign/sigstore signatures on release
// artifacts using the public-good Sigstore trusted root (Fulcio +
// Rekor), binding the signature to the artifact's own bytes rather
// than an OCI digest.
type SigstoreVerifier struct {
	trustedRootOnce sync.Once
	trustedRoot     *root.LiveTrustedRoot
	trustedRootErr  error
}

// NewSigstoreVerifier creates a new SigstoreVerifier.
func NewSigstoreVerifier() *SigstoreVerifier {
	return &SigstoreVerifier{}
}

// Verify checks a's sigstore bundle, if present, against its own
// bytes. An artifact with no BundlePath is skipped (unsigned release);
// this is a warn-and-continue condition, not a hard failure.
func (v *SigstoreVerifier) Verify(_ context.Context, a Artifact) (Result, error) {
	if a.BundlePath == "" {
		slog.Warn("no sigstore bundle found for artifact, skipping signature verification", "path", a.Path)
		return Result{Artifact: a, Skipped: true, SkipReason: "no sigstore bundle published for this release asset"}, nil
	}

	b, err := bundle.LoadJSONFromPath(a.BundlePath)
	if err != nil {
		slog.Warn("sigstore verification skipped: failed to load bundle", "path", a.BundlePath, "error", err)
		return Result{Artifact: a, Skipped: true, SkipReason: fmt.Sprintf("failed to load sigstore bundle: %v", err)}, nil
	}

	artifact, err := os.Open(a.Path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open artifact for verification: %w", err)
	}
	defer artifact.Close()

	if err := v.verifyBundle(b, artifact, a.Repo); err != nil {
		slog.Warn("sigstore signature verification failed", "path", a.Path, "error", err)
		return Result{Artifact: a, Skipped: true, SkipReason: fmt.Sprintf("signature verification failed: %v", err)}, nil
	}

	slog.Info("sigstore signature verified", "path", a.Path, "repo", a.Repo)
	return Result{Artifact: a, Verified: true}, nil
}

func (v *SigstoreVerifier) getTrustedRoot() (*root.LiveTrustedRoot, error) {
	v.trustedRootOnce.Do(func() {
		v.trustedRoot, v.trustedRootErr = root.NewLiveTrustedRoot(tuf.DefaultOptions())
	})
	return v.trustedRoot, v.trustedRootErr
}

// verifyBundle verifies b was produced by a GitHub Actions workflow in
// repo, signing exactly the bytes read from artifact.
func (v *SigstoreVerifier) verifyBundle(b *bundle.Bundle, artifact *os.File, repo string) error {
	trustedRoot, err := v.getTrustedRoot()
	if err != nil {
		return fmt.Errorf("failed to fetch trusted root: %w", err)
	}

	verifierConfig, err := sgverify.NewVerifier(
		trustedRoot,
		sgverify.WithSignedCertificateTimestamps(1),
		sgverify.WithTransparencyLog(1),
		sgverify.WithIntegratedTimestamps(1),
	)
	if err != nil {
		return fmt.Errorf("failed to create verifier: %w", err)
	}

	certIdentity, err := sgverify.NewShortCertificateIdentity(
		expectedOIDCIssuer, "", "", sanPatternForRepo(repo),
	)
	if err != nil {
		return fmt.Errorf("failed to create certificate identity: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(artifact); err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}

	_, err = verifierConfig.Verify(b, sgverify.NewPolicy(
		sgverify.WithArtifact(bytes.NewReader(buf.Bytes())),
		sgverify.WithCertificateIdentity(certIdentity),
	))
	if err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}

	return nil
}

// sanPatternForRepo builds the expected SAN regex for a GitHub Actions
// workflow identity belonging to repo ("owner/name").
func sanPatternForRepo(repo string) string {
	return fmt.Sprintf(`^https://github\.com/%s/`, regexp.QuoteMeta(repo))
}
