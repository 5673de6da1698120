// Package gitcmd runs git operations against a working tree by invoking
// the git executable.
package gitcmd

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/prefix-dev/pixibump/internal/logfields"
)

const loggerName = "git"

// Git executes git commands in a fixed working directory.
type Git struct {
	dir    string
	logger *zap.Logger
}

func New(dir string) *Git {
	return &Git{
		dir:    dir,
		logger: zap.L().Named(loggerName),
	}
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	g.logger.Debug(
		"running git command",
		logfields.Event("git_command_started"),
		zap.String("command", "git "+strings.Join(args, " ")),
	)

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf(
			"git %s failed: %w, stderr: %s",
			strings.Join(args, " "), err, strings.TrimSpace(stderr.String()),
		)
	}

	return stdout.String(), nil
}

// HasChanges reports if the working tree or the index contains
// uncommitted changes to the given paths.
func (g *Git) HasChanges(ctx context.Context, paths ...string) (bool, error) {
	args := append([]string{"status", "--porcelain", "--"}, paths...)

	out, err := g.run(ctx, args...)
	if err != nil {
		return false, err
	}

	return strings.TrimSpace(out) != "", nil
}

// ShowFile returns the content of the file at path as committed in ref.
func (g *Git) ShowFile(ctx context.Context, ref, path string) ([]byte, error) {
	out, err := g.run(ctx, "show", ref+":"+path)
	if err != nil {
		return nil, err
	}

	return []byte(out), nil
}

// CheckoutNewBranch creates the branch at the current HEAD and switches to
// it.
func (g *Git) CheckoutNewBranch(ctx context.Context, name string) error {
	_, err := g.run(ctx, "checkout", "-b", name)
	return err
}

// SetUser sets the commit author identity of the repository.
func (g *Git) SetUser(ctx context.Context, name, email string) error {
	if _, err := g.run(ctx, "config", "user.name", name); err != nil {
		return err
	}

	_, err := g.run(ctx, "config", "user.email", email)
	return err
}

// Add stages the given paths.
func (g *Git) Add(ctx context.Context, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)

	_, err := g.run(ctx, args...)
	return err
}

// Commit commits the staged changes.
func (g *Git) Commit(ctx context.Context, message string) error {
	_, err := g.run(ctx, "commit", "-m", message)
	return err
}

// Push pushes the branch to the remote.
func (g *Git) Push(ctx context.Context, remote, branch string) error {
	_, err := g.run(ctx, "push", remote, branch)
	return err
}
