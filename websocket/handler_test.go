package websocket

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/voxedit/client"
	"github.com/aukilabs/voxedit/editor"
	"github.com/aukilabs/voxedit/featureflag"
	"github.com/aukilabs/voxedit/messages"
	"github.com/aukilabs/voxedit/models"
	"github.com/aukilabs/voxedit/modules"
	"github.com/aukilabs/voxedit/modules/voxels"
	"github.com/aukilabs/voxedit/voxel"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
)

func newVoxelsModule() modules.Module {
	return &voxels.Module{
		Palette: editor.DefaultPalette(),
		Scales:  voxel.DefaultScaleRange(),
	}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	t.Cleanup(cancel)
	return ctx
}

func joinSession(t *testing.T, ctx context.Context, c *client.Client, sessionID string) (messages.ParticipantJoinResponse, messages.SessionState) {
	res, err := c.Join(ctx, sessionID)
	require.NoError(t, err)

	var state messages.SessionState
	err = c.ReceivePayload(ctx, &state)
	require.NoError(t, err)
	return res, state
}

func receiveError(t *testing.T, ctx context.Context, c *client.Client) messages.ErrorResponse {
	var res messages.ErrorResponse
	err := c.ReceivePayload(ctx, &res)
	require.NoError(t, err)
	return res
}

func createVoxel(t *testing.T, ctx context.Context, c *client.Client, camera mgl64.Vec3) messages.VoxelEditResponse {
	err := c.Send(messages.VoxelCreateRequest{
		RequestID: c.NextRequestID(),
		Camera:    camera,
		Forward:   mgl64.Vec3{0, 0, -1},
	})
	require.NoError(t, err)

	var res messages.VoxelEditResponse
	err = c.ReceivePayload(ctx, &res)
	require.NoError(t, err)
	return res
}

func TestHandlerSendSyncClock(t *testing.T) {
	clientA, _, close := NewTestingEnv(t, newTestHandler())
	defer close()

	msg, err := clientA.ReceiveType(testContext(t), messages.MsgTypeSyncClock)
	require.NoError(t, err)
	require.NotZero(t, msg.Timestamp)
}

func TestHandlerHandlePing(t *testing.T) {
	clientA, _, close := NewTestingEnv(t, newTestHandler())
	defer close()

	latency, err := clientA.Ping(testContext(t))
	require.NoError(t, err)
	require.NotZero(t, latency)
}

func TestHandlerHandleParticipantJoin(t *testing.T) {
	clientA, clientB, close := NewTestingEnv(t, newTestHandler())
	defer close()

	ctx := testContext(t)

	resA, stateA := joinSession(t, ctx, clientA, "")
	require.True(t, strings.HasPrefix(resA.SessionID, "tedx"))
	require.NotEmpty(t, resA.SessionUUID)
	require.NotZero(t, resA.ParticipantID)
	require.Len(t, stateA.Participants, 1)
	require.Empty(t, stateA.Voxels)

	resB, stateB := joinSession(t, ctx, clientB, resA.SessionID)
	require.Equal(t, resA.SessionID, resB.SessionID)
	require.Equal(t, resA.SessionUUID, resB.SessionUUID)
	require.NotEqual(t, resA.ParticipantID, resB.ParticipantID)
	require.Len(t, stateB.Participants, 2)

	var broadcast messages.ParticipantJoinBroadcast
	err := clientA.ReceivePayload(ctx, &broadcast)
	require.NoError(t, err)
	require.Equal(t, resB.ParticipantID, broadcast.ParticipantID)
}

func TestHandlerHandleParticipantJoinNotCreatedSession(t *testing.T) {
	clientA, _, close := NewTestingEnv(t, newTestHandler())
	defer close()

	ctx := testContext(t)

	err := clientA.Send(messages.ParticipantJoinRequest{
		RequestID: 1,
		SessionID: "tedx42",
	})
	require.NoError(t, err)

	res := receiveError(t, ctx, clientA)
	require.Equal(t, uint32(1), res.RequestID)
	require.Equal(t, messages.ErrorCodeNotFound, res.Code)
}

func TestHandlerHandleMultipleSameParticipantJoins(t *testing.T) {
	clientA, _, close := NewTestingEnv(t, newTestHandler())
	defer close()

	ctx := testContext(t)
	res, _ := joinSession(t, ctx, clientA, "")

	err := clientA.Send(messages.ParticipantJoinRequest{
		RequestID: 42,
		SessionID: res.SessionID,
	})
	require.NoError(t, err)

	errRes := receiveError(t, ctx, clientA)
	require.Equal(t, uint32(42), errRes.RequestID)
	require.Equal(t, messages.ErrorCodeSessionAlreadyJoined, errRes.Code)

	t.Run("joining another session leaves the current one", func(t *testing.T) {
		resNew, state := joinSession(t, ctx, clientA, "")
		require.NotEqual(t, res.SessionUUID, resNew.SessionUUID)
		require.Len(t, state.Participants, 1)
	})
}

func TestHandlerHandleParticipantDisconnect(t *testing.T) {
	clientA, clientB, close := NewTestingEnv(t, newTestHandler())
	defer close()

	ctx := testContext(t)

	resA, _ := joinSession(t, ctx, clientA, "")
	resB, _ := joinSession(t, ctx, clientB, resA.SessionID)

	var join messages.ParticipantJoinBroadcast
	err := clientA.ReceivePayload(ctx, &join)
	require.NoError(t, err)

	clientB.Close()

	var leave messages.ParticipantLeaveBroadcast
	err = clientA.ReceivePayload(ctx, &leave)
	require.NoError(t, err)
	require.Equal(t, resB.ParticipantID, leave.ParticipantID)
}

func TestHandlerMsgWithoutJoining(t *testing.T) {
	clientA, _, close := NewTestingEnv(t, newTestHandler(newVoxelsModule))
	defer close()

	err := clientA.Send(messages.VoxelEditRequest{RequestID: 7})
	require.NoError(t, err)

	res := receiveError(t, testContext(t), clientA)
	require.Equal(t, messages.ErrorCodeSessionNotJoined, res.Code)
}

func TestHandlerVoxelEdits(t *testing.T) {
	clientA, clientB, close := NewTestingEnv(t, newTestHandler(newVoxelsModule))
	defer close()

	ctx := testContext(t)

	resA, _ := joinSession(t, ctx, clientA, "")

	var editorState messages.EditorState
	err := clientA.ReceivePayload(ctx, &editorState)
	require.NoError(t, err)
	require.True(t, editorState.Enabled)

	first := createVoxel(t, ctx, clientA, mgl64.Vec3{0, 0, 0})
	require.Len(t, first.Mutations, 1)

	t.Run("late joiner receives the session voxels", func(t *testing.T) {
		_, state := joinSession(t, ctx, clientB, resA.SessionID)
		require.Len(t, state.Voxels, 1)
		require.Equal(t, first.Target.Cell, state.Voxels[0].Cell)
	})

	t.Run("edits are broadcasted to other participants", func(t *testing.T) {
		second := createVoxel(t, ctx, clientA, mgl64.Vec3{10, 0, 0})

		var broadcast messages.VoxelEditBroadcast
		err := clientB.ReceivePayload(ctx, &broadcast)
		require.NoError(t, err)
		require.Len(t, broadcast.Edits, 1)
		require.Equal(t, resA.ParticipantID, broadcast.Edits[0].ParticipantID)
		require.Equal(t, second.Mutations, broadcast.Edits[0].Mutations)
	})
}

func TestHandlerDisconnectOnIdleTimeout(t *testing.T) {
	clientA, _, close := newTestingEnv(t, func() Handler {
		return &RealtimeHandler{
			ClientSyncClockInterval: time.Second,
			ClientIdleTimeout:       0,
			Sessions:                &models.SessionStore{},
		}
	})
	defer close()

	_, err := clientA.ReceiveType(testContext(t), messages.MsgTypeParticipantJoinResponse)
	require.Error(t, err)
}

func TestHandlerFeatureFlagFilter(t *testing.T) {
	t.Run("session state", func(t *testing.T) {
		clientA, _, close := NewTestingEnv(t, newTestHandlerWithFlags([]string{
			string(featureflag.FlagDisableSessionState),
		}))
		defer close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*500)
		defer cancel()

		res, err := clientA.Join(ctx, "")
		require.NoError(t, err)
		require.NotEmpty(t, res.SessionID)

		_, err = clientA.ReceiveType(ctx, messages.MsgTypeSessionState)
		require.Error(t, err)
	})

	t.Run("edit broadcast", func(t *testing.T) {
		clientA, clientB, close := NewTestingEnv(t, newTestHandlerWithFlags([]string{
			string(featureflag.FlagDisableEditBroadcast),
		}, newVoxelsModule))
		defer close()

		ctx := testContext(t)
		resA, _ := joinSession(t, ctx, clientA, "")
		joinSession(t, ctx, clientB, resA.SessionID)

		createVoxel(t, ctx, clientA, mgl64.Vec3{0, 0, 0})

		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*300)
		defer cancel()

		_, err := clientB.ReceiveType(ctx, messages.MsgTypeVoxelEditBroadcast)
		require.Error(t, err)
		require.False(t, errors.IsType(err, client.ErrTypeErrorResponse))
	})
}
