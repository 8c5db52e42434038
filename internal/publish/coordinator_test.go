package publish_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/linkdesk/internal/logger"
	"github.com/MrSnakeDoc/linkdesk/internal/publish"
	"github.com/MrSnakeDoc/linkdesk/internal/publish/publishtest"
)

const (
	before = "Tools:\n  - display_name: Alpha\n"
	after  = "Tools:\n  - display_name: Alpha 2\n"
)

func coordinator(tr publish.Transport, s publish.Strategy) *publish.Coordinator {
	return publish.NewCoordinator(tr, publish.Options{
		Strategy:      s,
		DefaultBranch: "main",
		Now:           func() time.Time { return time.UnixMilli(1700000000000) },
		NewID:         func() string { return "abcd1234" },
	}, logger.Nop())
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    publish.Strategy
		wantErr bool
	}{
		{in: "direct", want: publish.DirectCommit},
		{in: "", want: publish.DirectCommit},
		{in: " Review ", want: publish.BranchAndReview},
		{in: "pr", want: publish.BranchAndReview},
		{in: "merge", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := publish.ParseStrategy(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "review", publish.BranchAndReview.String())
}

func TestDirectPublish(t *testing.T) {
	tr := publishtest.New(before)
	c := coordinator(tr, publish.DirectCommit)

	snap, err := c.Load(context.Background())
	require.NoError(t, err)

	res, err := c.Publish(context.Background(), after, snap.Revision, "msg")
	require.NoError(t, err)

	assert.Equal(t, after, tr.Text("main"))
	assert.True(t, res.Resynced)
	assert.Equal(t, publishtest.Revision(after), res.Snapshot.Revision, "marker comes from a re-read")
	assert.Equal(t, after, res.Snapshot.Text)
	assert.Nil(t, res.Review)
	assert.Equal(t, []string{"load:main", "write:main", "load:main"}, tr.Calls)

	require.Len(t, tr.Writes, 1)
	assert.Equal(t, publish.WriteRequest{Text: after, Revision: snap.Revision, Message: "msg", Branch: "main"}, tr.Writes[0])
}

func TestDirectPublishStaleRevisionConflicts(t *testing.T) {
	tr := publishtest.New(before)
	c := coordinator(tr, publish.DirectCommit)

	snap, err := c.Load(context.Background())
	require.NoError(t, err)
	tr.SetText("main", "Tools: []\n")

	_, err = c.Publish(context.Background(), after, snap.Revision, "msg")
	require.ErrorIs(t, err, publish.ErrConflict)

	var conflict *publish.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, snap.Revision, conflict.Revision)
	assert.Contains(t, conflict.Reason, "does not match")

	assert.Equal(t, "Tools: []\n", tr.Text("main"), "remote untouched")
	assert.Empty(t, tr.Writes)
	assert.Equal(t, []string{"load:main", "write:main"}, tr.Calls, "no further calls after a conflict")
}

func TestDirectPublishKeepsTransportErrors(t *testing.T) {
	tr := publishtest.New(before)
	tr.FailWrite = &publish.TransportError{Op: "write", Err: publish.ErrPermissionDenied}
	c := coordinator(tr, publish.DirectCommit)

	_, err := c.Publish(context.Background(), after, publishtest.Revision(before), "msg")
	require.ErrorIs(t, err, publish.ErrPermissionDenied)
	var te *publish.TransportError
	assert.True(t, errors.As(err, &te))
}

func TestDirectPublishReadBackFailureIsNotAFailure(t *testing.T) {
	tr := publishtest.New(before)
	c := coordinator(tr, publish.DirectCommit)
	tr.OnWrite = func(publish.WriteRequest) { tr.FailLoad = errors.New("offline") }

	res, err := c.Publish(context.Background(), after, publishtest.Revision(before), "msg")
	require.NoError(t, err)
	assert.False(t, res.Resynced)
	assert.Equal(t, after, tr.Text("main"))
}

func TestReviewPublish(t *testing.T) {
	tr := publishtest.New(before)
	c := coordinator(tr, publish.BranchAndReview)

	res, err := c.Publish(context.Background(), after, publishtest.Revision(before), "msg")
	require.NoError(t, err)

	const branch = "editor-1700000000000-abcd1234"
	assert.Equal(t, branch, res.Branch)
	require.NotNil(t, res.Review)
	assert.Equal(t, 1, res.Review.Number)
	assert.Equal(t, branch, res.Review.Branch)

	assert.Equal(t, after, tr.Text(branch))
	assert.Equal(t, before, tr.Text("main"), "default branch only changes on merge")
	assert.Equal(t, publishtest.Revision(before), res.Snapshot.Revision)
	assert.Equal(t, []string{"tip", "branch:" + branch, "write:" + branch, "propose:" + branch, "load:main"}, tr.Calls)
}

func TestReviewPublishBranchFailureOpensNoReview(t *testing.T) {
	tr := publishtest.New(before)
	tr.FailBranch = &publish.TransportError{Op: "create branch", Err: errors.New("reference already exists")}
	c := coordinator(tr, publish.BranchAndReview)

	_, err := c.Publish(context.Background(), after, publishtest.Revision(before), "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference already exists")
	assert.Empty(t, tr.Writes)
	assert.Empty(t, tr.Reviews)
	assert.NotContains(t, tr.Calls, "propose:editor-1700000000000-abcd1234")
}

func TestReviewPublishStaleRevisionOpensNoReview(t *testing.T) {
	tr := publishtest.New(before)
	c := coordinator(tr, publish.BranchAndReview)
	stale := publishtest.Revision(before)
	tr.SetText("main", "Tools: []\n")

	_, err := c.Publish(context.Background(), after, stale, "msg")
	require.ErrorIs(t, err, publish.ErrConflict)
	assert.Empty(t, tr.Reviews)
}

func TestReviewPublishTipFailure(t *testing.T) {
	tr := publishtest.New(before)
	tr.FailTip = errors.New("boom")
	c := coordinator(tr, publish.BranchAndReview)

	_, err := c.Publish(context.Background(), after, publishtest.Revision(before), "msg")
	require.Error(t, err)
	assert.Equal(t, []string{"tip"}, tr.Calls)
}

func TestConflictErrorMessage(t *testing.T) {
	err := &publish.ConflictError{Revision: "0123456789abcdef", Reason: "sha mismatch"}
	assert.Equal(t, "concurrency conflict at revision 0123456789ab: sha mismatch", err.Error())
	assert.ErrorIs(t, err, publish.ErrConflict)
}
