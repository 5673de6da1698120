package bump

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/prefix-dev/pixibump/internal/bump/mocks"
	"github.com/prefix-dev/pixibump/internal/bumperr"
	"github.com/prefix-dev/pixibump/internal/manifest"
)

func newTestOracle(t *testing.T) (*Oracle, *mocks.MockGithubClient) {
	t.Helper()
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockCtrl := gomock.NewController(t)
	clt := mocks.NewMockGithubClient(mockCtrl)

	return NewOracle(clt, "prefix-dev", "pixi"), clt
}

func TestOracleTagComparisonIsPlainEquality(t *testing.T) {
	testcases := []struct {
		name     string
		pinned   string
		latest   string
		expected Decision
	}{
		{name: "equal", pinned: "v1.0.0", latest: "v1.0.0", expected: DecisionUpToDate},
		{name: "newer", pinned: "v1.0.0", latest: "v1.2.0", expected: DecisionUpdateAvailable},
		// no version ordering: a downgrade or re-tag is an update too
		{name: "older", pinned: "v1.2.0", latest: "v1.0.0", expected: DecisionUpdateAvailable},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			oracle, clt := newTestOracle(t)

			clt.EXPECT().
				LatestReleaseTag(gomock.Any(), gomock.Eq("prefix-dev"), gomock.Eq("pixi")).
				Return(tc.latest, nil)

			latest, decision, err := oracle.Evaluate(context.Background(), &manifest.Reference{Tag: tc.pinned})
			require.NoError(t, err)

			assert.Equal(t, tc.latest, latest)
			assert.Equal(t, tc.expected, decision)
		})
	}
}

func TestOracleRevComparisonStatusMapping(t *testing.T) {
	testcases := []struct {
		status   string
		expected Decision
	}{
		{status: "ahead", expected: DecisionUpdateAvailable},
		{status: "diverged", expected: DecisionUpdateAvailable},
		{status: "identical", expected: DecisionUpToDate},
		{status: "behind", expected: DecisionUpToDate},
		{status: "unexpected", expected: DecisionIndeterminate},
	}

	for _, tc := range testcases {
		t.Run(tc.status, func(t *testing.T) {
			oracle, clt := newTestOracle(t)

			clt.EXPECT().
				LatestReleaseTag(gomock.Any(), gomock.Any(), gomock.Any()).
				Return("v1.2.0", nil)
			clt.EXPECT().
				CompareStatus(gomock.Any(), gomock.Eq("prefix-dev"), gomock.Eq("pixi"), gomock.Eq("3f2a1bc"), gomock.Eq("v1.2.0")).
				Return(tc.status, nil)

			_, decision, err := oracle.Evaluate(context.Background(), &manifest.Reference{Rev: "3f2a1bc"})
			require.NoError(t, err)

			assert.Equal(t, tc.expected, decision)
		})
	}
}

func TestOracleReleaseQueryFailure(t *testing.T) {
	oracle, clt := newTestOracle(t)

	clt.EXPECT().
		LatestReleaseTag(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", errors.New("no releases"))

	_, decision, err := oracle.Evaluate(context.Background(), &manifest.Reference{Tag: "v1.0.0"})
	require.Error(t, err)

	assert.True(t, bumperr.IsKind(err, bumperr.KindNetwork))
	assert.Equal(t, DecisionIndeterminate, decision)
}

func TestOracleCompareQueryFailure(t *testing.T) {
	oracle, clt := newTestOracle(t)

	clt.EXPECT().
		LatestReleaseTag(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("v1.2.0", nil)
	clt.EXPECT().
		CompareStatus(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", errors.New("api unreachable"))

	_, _, err := oracle.Evaluate(context.Background(), &manifest.Reference{Rev: "3f2a1bc"})
	require.Error(t, err)

	assert.True(t, bumperr.IsKind(err, bumperr.KindNetwork))
}
