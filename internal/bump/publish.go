package bump

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/prefix-dev/pixibump/internal/bumperr"
	"github.com/prefix-dev/pixibump/internal/logfields"
	"github.com/prefix-dev/pixibump/internal/manifest"
)

// PublishPR materializes the pending manifest change in the working tree as
// a branch, a commit and a pull request against the default branch of the
// downstream repository.
//
// It is safe to run unconditionally after Update: when the working tree has
// no relevant change it only reports that there is nothing to publish. When
// an open pull request for the target release already exists it reports the
// existing one and stops, which keeps repeated scheduled runs from opening
// duplicates. That guard is a check-then-act without a lock, at most one
// open pull request per release is best-effort, not guaranteed under truly
// concurrent runs.
//
// On failure no rollback happens, a created branch without a pull request
// is an acceptable state that is recovered manually.
func (b *Bumper) PublishPR(ctx context.Context) error {
	changed, err := b.git.HasChanges(ctx, b.cfg.ManifestPath, b.cfg.LockfilePath)
	if err != nil {
		return bumperr.NewPublishError(err)
	}

	if !changed {
		b.logger.Info(
			"working tree has no pending manifest change",
			logfields.Event("publish_nothing_to_do"),
			logfields.Dependency(b.cfg.Dependency),
		)
		fmt.Fprintln(b.out, "Nothing to publish, working tree is clean.")

		return nil
	}

	newRef, err := b.currentReference()
	if err != nil {
		return err
	}

	if newRef.Tag == "" {
		return bumperr.NewPublishError(
			errors.New("working tree manifest does not pin the dependency to a tag"))
	}
	target := newRef.Tag

	oldContent, err := b.git.ShowFile(ctx, "HEAD", b.cfg.ManifestPath)
	if err != nil {
		return bumperr.NewPublishError(err)
	}

	oldRef, err := manifest.Resolve(oldContent, b.cfg.Dependency)
	if err != nil {
		return err
	}

	branch := b.cfg.BranchPrefix + "/" + target

	existing, err := b.ghClient.FindOpenPullRequest(ctx, b.downstreamOwner, b.downstreamRepo, branch)
	if err != nil {
		return bumperr.NewPublishError(err)
	}

	if existing != nil {
		b.logger.Info(
			"pull request already exists",
			logfields.Event("publish_pull_request_exists"),
			logfields.Branch(branch),
			logfields.PullRequest(existing.GetNumber()),
		)
		fmt.Fprintf(b.out, "PR #%d already exists for %s\n", existing.GetNumber(), branch)

		return nil
	}

	if err := b.createPullRequest(ctx, branch, oldRef, target); err != nil {
		return err
	}

	return nil
}

func (b *Bumper) createPullRequest(ctx context.Context, branch string, oldRef *manifest.Reference, target string) error {
	logger := b.logger.With(
		logfields.Branch(branch),
		logfields.Tag(target),
		logfields.Repository(b.cfg.DownstreamRepository),
	)

	if err := b.git.CheckoutNewBranch(ctx, branch); err != nil {
		return bumperr.NewPublishError(err)
	}

	if err := b.git.SetUser(ctx, b.cfg.GitUserName, b.cfg.GitUserEmail); err != nil {
		return bumperr.NewPublishError(err)
	}

	if err := b.git.Add(ctx, b.cfg.ManifestPath, b.cfg.LockfilePath); err != nil {
		return bumperr.NewPublishError(err)
	}

	title := b.commitMessage(target)

	if err := b.git.Commit(ctx, title); err != nil {
		return bumperr.NewPublishError(err)
	}

	if err := b.git.Push(ctx, "origin", branch); err != nil {
		return bumperr.NewPublishError(err)
	}

	logger.Debug("branch pushed", logfields.Event("publish_branch_pushed"))

	baseBranch, err := b.ghClient.DefaultBranch(ctx, b.downstreamOwner, b.downstreamRepo)
	if err != nil {
		return bumperr.NewPublishError(err)
	}

	pr, err := b.ghClient.CreatePullRequest(
		ctx,
		b.downstreamOwner, b.downstreamRepo,
		title,
		b.pullRequestBody(oldRef, target),
		branch,
		baseBranch,
	)
	if err != nil {
		return bumperr.NewPublishError(err)
	}

	logger.Info(
		"pull request created",
		logfields.Event("publish_pull_request_created"),
		logfields.PullRequest(pr.GetNumber()),
		zap.String("url", pr.GetHTMLURL()),
	)
	fmt.Fprintf(b.out, "Created PR #%d: %s\n", pr.GetNumber(), pr.GetHTMLURL())

	return nil
}

func (b *Bumper) commitMessage(target string) string {
	return fmt.Sprintf("chore: bump %s to %s", b.upstreamName(), target)
}

func (b *Bumper) pullRequestBody(oldRef *manifest.Reference, target string) string {
	return fmt.Sprintf(
		"Bumps %s dependency from %s to %s.\n\nRelease notes: https://github.com/%s/releases/tag/%s",
		b.upstreamName(), oldRef, target, b.cfg.UpstreamRepository, target,
	)
}

func (b *Bumper) upstreamName() string {
	return b.upstreamRepo
}
