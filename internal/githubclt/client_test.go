package githubclt

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	clt := New("")

	baseURL, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	clt.restClt.BaseURL = baseURL

	return clt
}

func TestLatestReleaseTag(t *testing.T) {
	clt := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/prefix-dev/pixi/releases/latest", r.URL.Path)
		fmt.Fprint(w, `{"tag_name": "v1.2.0"}`)
	}))

	tag, err := clt.LatestReleaseTag(context.Background(), "prefix-dev", "pixi")
	require.NoError(t, err)

	assert.Equal(t, "v1.2.0", tag)
}

func TestLatestReleaseTagNoReleases(t *testing.T) {
	clt := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := clt.LatestReleaseTag(context.Background(), "prefix-dev", "pixi")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "no published releases")
}

func TestLatestReleaseTagEmptyTagName(t *testing.T) {
	clt := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{}`)
	}))

	_, err := clt.LatestReleaseTag(context.Background(), "prefix-dev", "pixi")
	require.Error(t, err)
}

func TestCompareStatus(t *testing.T) {
	clt := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/prefix-dev/pixi/compare/3f2a1bc...v1.2.0", r.URL.Path)
		fmt.Fprint(w, `{"status": "ahead"}`)
	}))

	status, err := clt.CompareStatus(context.Background(), "prefix-dev", "pixi", "3f2a1bc", "v1.2.0")
	require.NoError(t, err)

	assert.Equal(t, "ahead", status)
}

func TestCompareStatusMissingStatusField(t *testing.T) {
	clt := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{}`)
	}))

	_, err := clt.CompareStatus(context.Background(), "prefix-dev", "pixi", "3f2a1bc", "v1.2.0")
	require.Error(t, err)
}

func TestFindOpenPullRequest(t *testing.T) {
	clt := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/prefix-dev/pixi-gui/pulls", r.URL.Path)
		assert.Equal(t, "open", r.URL.Query().Get("state"))
		assert.Equal(t, "prefix-dev:bump-pixi/v1.2.0", r.URL.Query().Get("head"))
		fmt.Fprint(w, `[{"number": 5, "html_url": "https://github.com/prefix-dev/pixi-gui/pull/5"}]`)
	}))

	pr, err := clt.FindOpenPullRequest(context.Background(), "prefix-dev", "pixi-gui", "bump-pixi/v1.2.0")
	require.NoError(t, err)

	require.NotNil(t, pr)
	assert.Equal(t, 5, pr.GetNumber())
}

func TestFindOpenPullRequestNoneExists(t *testing.T) {
	clt := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[]`)
	}))

	pr, err := clt.FindOpenPullRequest(context.Background(), "prefix-dev", "pixi-gui", "bump-pixi/v1.2.0")
	require.NoError(t, err)

	assert.Nil(t, pr)
}

func TestCreatePullRequest(t *testing.T) {
	clt := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/prefix-dev/pixi-gui/pulls", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"number": 3, "html_url": "https://github.com/prefix-dev/pixi-gui/pull/3"}`)
	}))

	pr, err := clt.CreatePullRequest(
		context.Background(),
		"prefix-dev", "pixi-gui",
		"chore: bump pixi to v1.2.0", "body",
		"bump-pixi/v1.2.0", "main",
	)
	require.NoError(t, err)

	assert.Equal(t, 3, pr.GetNumber())
	assert.Equal(t, "https://github.com/prefix-dev/pixi-gui/pull/3", pr.GetHTMLURL())
}

func TestDefaultBranch(t *testing.T) {
	clt := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/prefix-dev/pixi-gui", r.URL.Path)
		fmt.Fprint(w, `{"default_branch": "main"}`)
	}))

	branch, err := clt.DefaultBranch(context.Background(), "prefix-dev", "pixi-gui")
	require.NoError(t, err)

	assert.Equal(t, "main", branch)
}
