package bump

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/prefix-dev/pixibump/internal/bumperr"
	"github.com/prefix-dev/pixibump/internal/logfields"
	"github.com/prefix-dev/pixibump/internal/manifest"
)

// Oracle decides if the pinned reference must be moved to the latest
// upstream release.
type Oracle struct {
	clt   GithubClient
	owner string
	repo  string

	logger *zap.Logger
}

func NewOracle(clt GithubClient, upstreamOwner, upstreamRepo string) *Oracle {
	return &Oracle{
		clt:    clt,
		owner:  upstreamOwner,
		repo:   upstreamRepo,
		logger: zap.L().Named("update_oracle"),
	}
}

// Evaluate returns the tag of the latest upstream release and the update
// decision for the pinned reference.
//
// A tag pin is compared by plain string equality, no version ordering is
// applied: an upstream re-tag or downgrade counts as an available update
// like any other mismatch. A rev pin is compared through the upstream
// history graph, ahead and diverged signal an update, identical and behind
// do not.
func (o *Oracle) Evaluate(ctx context.Context, ref *manifest.Reference) (string, Decision, error) {
	latest, err := o.clt.LatestReleaseTag(ctx, o.owner, o.repo)
	if err != nil {
		return "", DecisionIndeterminate, bumperr.NewNetworkError(
			fmt.Errorf("querying latest release of %s/%s failed: %w", o.owner, o.repo, err))
	}

	if ref.Tag != "" {
		if ref.Tag == latest {
			return latest, DecisionUpToDate, nil
		}

		return latest, DecisionUpdateAvailable, nil
	}

	status, err := o.clt.CompareStatus(ctx, o.owner, o.repo, ref.Rev, latest)
	if err != nil {
		return "", DecisionIndeterminate, bumperr.NewNetworkError(
			fmt.Errorf("comparing %s with %s in %s/%s failed: %w", ref.Rev, latest, o.owner, o.repo, err))
	}

	switch status {
	case "ahead", "diverged":
		return latest, DecisionUpdateAvailable, nil
	case "identical", "behind":
		return latest, DecisionUpToDate, nil
	default:
		o.logger.Warn(
			"github returned an unexpected comparison status",
			logfields.Event("github_unexpected_compare_status"),
			logfields.Revision(ref.Rev),
			logfields.Tag(latest),
			zap.String("status", status),
		)

		return latest, DecisionIndeterminate, nil
	}
}
