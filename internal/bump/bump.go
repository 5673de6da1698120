// Package bump implements the dependency-synchronization workflow: it
// detects new upstream releases, rewrites the manifest pin and publishes
// the pending change as a pull request.
//
// The three operations Check, Update and PublishPR are designed to be run
// as independent process invocations. State crosses invocations only
// through the working tree and the git index, every operation tolerates the
// effects of a prior run already being present.
package bump

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v43/github"
	"go.uber.org/zap"

	"github.com/prefix-dev/pixibump/internal/bumperr"
	"github.com/prefix-dev/pixibump/internal/logfields"
	"github.com/prefix-dev/pixibump/internal/manifest"
)

const loggerName = "bumper"

// GithubClient is the subset of the github API used by the workflow.
// It is implemented by githubclt.Client.
type GithubClient interface {
	LatestReleaseTag(ctx context.Context, owner, repo string) (string, error)
	CompareStatus(ctx context.Context, owner, repo, base, head string) (string, error)
	FindOpenPullRequest(ctx context.Context, owner, repo, headBranch string) (*github.PullRequest, error)
	CreatePullRequest(ctx context.Context, owner, repo, title, body, head, base string) (*github.PullRequest, error)
	DefaultBranch(ctx context.Context, owner, repo string) (string, error)
}

// GitClient runs version-control operations against the working tree.
// It is implemented by gitcmd.Git.
type GitClient interface {
	HasChanges(ctx context.Context, paths ...string) (bool, error)
	ShowFile(ctx context.Context, ref, path string) ([]byte, error)
	CheckoutNewBranch(ctx context.Context, name string) error
	SetUser(ctx context.Context, name, email string) error
	Add(ctx context.Context, paths ...string) error
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context, remote, branch string) error
}

// ManifestMutator pins the dependency to a release tag and refreshes the
// lockfile. It is implemented by manifest.Mutator.
type ManifestMutator interface {
	Apply(ctx context.Context, targetTag string) error
}

// Config describes the tracked dependency and the repositories involved.
type Config struct {
	// Dir is the root of the downstream working tree.
	Dir string
	// UpstreamRepository is the <owner>/<name> of the tracked project.
	UpstreamRepository string
	// DownstreamRepository is the <owner>/<name> receiving the pull
	// request.
	DownstreamRepository string
	// Dependency is the name of the manifest entry pinning the upstream.
	Dependency string
	// ManifestPath is the manifest location, relative to Dir.
	ManifestPath string
	// LockfilePath is the lockfile location, relative to Dir.
	LockfilePath string
	// BranchPrefix is the prefix of published branch names, the branch
	// for a release is <BranchPrefix>/<tag>.
	BranchPrefix string
	// GitUserName and GitUserEmail are the commit author identity.
	GitUserName  string
	GitUserEmail string
}

// Bumper runs the check, update and publish operations for one tracked
// dependency.
type Bumper struct {
	cfg Config

	upstreamOwner   string
	upstreamRepo    string
	downstreamOwner string
	downstreamRepo  string

	ghClient GithubClient
	git      GitClient
	mutator  ManifestMutator
	oracle   *Oracle

	out    io.Writer
	logger *zap.Logger
}

// New returns a Bumper. Reports about the dependency state are written to
// out, diagnostic logs go to the global zap logger.
func New(cfg Config, ghClient GithubClient, git GitClient, mutator ManifestMutator, out io.Writer) (*Bumper, error) {
	upstreamOwner, upstreamRepo, err := splitRepository(cfg.UpstreamRepository)
	if err != nil {
		return nil, err
	}

	downstreamOwner, downstreamRepo, err := splitRepository(cfg.DownstreamRepository)
	if err != nil {
		return nil, err
	}

	return &Bumper{
		cfg:             cfg,
		upstreamOwner:   upstreamOwner,
		upstreamRepo:    upstreamRepo,
		downstreamOwner: downstreamOwner,
		downstreamRepo:  downstreamRepo,
		ghClient:        ghClient,
		git:             git,
		mutator:         mutator,
		oracle:          NewOracle(ghClient, upstreamOwner, upstreamRepo),
		out:             out,
		logger:          zap.L().Named(loggerName),
	}, nil
}

func splitRepository(repository string) (owner, name string, err error) {
	owner, name, found := strings.Cut(repository, "/")
	if !found || owner == "" || name == "" {
		return "", "", fmt.Errorf("repository %q is not in <owner>/<name> format", repository)
	}

	return owner, name, nil
}

// currentReference resolves the pinned reference from the manifest in the
// working tree.
func (b *Bumper) currentReference() (*manifest.Reference, error) {
	content, err := os.ReadFile(filepath.Join(b.cfg.Dir, b.cfg.ManifestPath))
	if err != nil {
		return nil, bumperr.NewConfigError(fmt.Errorf("reading manifest failed: %w", err))
	}

	return manifest.Resolve(content, b.cfg.Dependency)
}

// Check reports the current pin, the latest upstream release and if an
// update is available. It has no side effects.
func (b *Bumper) Check(ctx context.Context) error {
	ref, err := b.currentReference()
	if err != nil {
		return err
	}

	latest, decision, err := b.oracle.Evaluate(ctx, ref)
	if err != nil {
		return err
	}

	fmt.Fprintf(b.out, "Current: %s\n", ref)
	fmt.Fprintf(b.out, "Latest release: %s\n", latest)

	switch decision {
	case DecisionUpdateAvailable:
		fmt.Fprintf(b.out, "Update available: %s -> %s\n", ref, latest)
	case DecisionUpToDate:
		fmt.Fprintln(b.out, "Up to date.")
	default:
		fmt.Fprintf(b.out, "Cannot determine update status for %s.\n", ref)
	}

	return nil
}

// Update rewrites the manifest to pin the latest upstream release and
// refreshes the lock entry. It is a no-op when the pin is already up to
// date, re-running it with an unchanged upstream produces no further
// changes.
func (b *Bumper) Update(ctx context.Context) error {
	ref, err := b.currentReference()
	if err != nil {
		return err
	}

	latest, decision, err := b.oracle.Evaluate(ctx, ref)
	if err != nil {
		return err
	}

	switch decision {
	case DecisionUpToDate:
		fmt.Fprintln(b.out, "Already up to date, nothing to do.")
		return nil
	case DecisionIndeterminate:
		fmt.Fprintf(b.out, "Cannot determine update status for %s, not updating.\n", ref)
		return nil
	}

	if err := b.mutator.Apply(ctx, latest); err != nil {
		return err
	}

	b.logger.Info(
		"dependency pin updated",
		logfields.Event("dependency_updated"),
		logfields.Dependency(b.cfg.Dependency),
		logfields.Tag(latest),
		zap.String("previous", ref.String()),
	)

	fmt.Fprintf(b.out, "Updated %s to %s\n", b.cfg.ManifestPath, latest)

	return nil
}
