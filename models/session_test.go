package models

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/voxedit/messages"
	"github.com/aukilabs/voxedit/voxel"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
)

func newTestSession() *Session {
	return NewSession(42, time.Second, 0)
}

func TestSessionNewParticipantID(t *testing.T) {
	session := newTestSession()
	require.NotZero(t, session.NewParticipantID())
}

func TestSessionAddParticipant(t *testing.T) {
	participant := &Participant{ID: 777}
	session := newTestSession()

	session.AddParticipant(participant)
	require.Len(t, session.participants, 1)
	require.Equal(t, participant, session.participants[777])
	require.Equal(t, 1, session.ParticipantCount())
}

func TestSessionRemoveParticipant(t *testing.T) {
	participant := &Participant{ID: 777}
	session := newTestSession()

	session.AddParticipant(participant)
	require.Len(t, session.participants, 1)

	session.RemoveParticipant(participant)
	require.Empty(t, session.participants)
}

func TestSessionGetParticipants(t *testing.T) {
	participant := &Participant{ID: 777}
	session := newTestSession()

	session.AddParticipant(participant)

	participants := session.GetParticipants()
	require.Len(t, participants, 1)
	require.Equal(t, participant, participants[0])
}

func TestSessionGetParticipantsByIDs(t *testing.T) {
	session := newTestSession()

	for i := 1; i <= 10; i++ {
		session.AddParticipant(&Participant{ID: uint32(i)})
	}

	participants := session.GetParticipantsByIDs(3, 7)
	require.Len(t, participants, 2)

	sort.Slice(participants, func(i, j int) bool {
		return participants[i].ID < participants[j].ID
	})

	require.Equal(t, uint32(3), participants[0].ID)
	require.Equal(t, uint32(7), participants[1].ID)
}

func TestSessionModuleState(t *testing.T) {
	t.Run("module state is found", func(t *testing.T) {
		s := newTestSession()

		stateA := 42
		s.SetModuleState("testModule", stateA)

		stateB, ok := s.ModuleState("testModule")
		require.True(t, ok)
		require.Equal(t, stateA, stateB)
	})

	t.Run("module state is not found", func(t *testing.T) {
		s := newTestSession()

		state, ok := s.ModuleState("testModule")
		require.False(t, ok)
		require.Nil(t, state)
	})
}

func TestSessionBroadcast(t *testing.T) {
	t.Run("msg from participant A is broadcasted to participant B", func(t *testing.T) {
		var sendACalled bool
		participantA := &Participant{
			ID: 1,
			Responder: testResponseSender{
				sendMsg: func(_ messages.Msg) {
					sendACalled = true
				},
				send: func(_ messages.Payload) {},
			},
		}

		var sendBCalled bool
		participantB := &Participant{
			ID: 2,
			Responder: testResponseSender{
				sendMsg: func(_ messages.Msg) {
					sendBCalled = true
				},
				send: func(_ messages.Payload) {},
			},
		}

		session := newTestSession()
		session.AddParticipant(participantA)
		session.AddParticipant(participantB)

		session.Broadcast(participantA, messages.ParticipantJoinBroadcast{ParticipantID: 1})
		require.False(t, sendACalled)
		require.True(t, sendBCalled)
	})
}

func TestBroadcastTo(t *testing.T) {
	t.Run("message is not broadcasted to sender", func(t *testing.T) {
		var sendACalled bool
		participantA := &Participant{
			ID: 1,
			Responder: testResponseSender{
				sendMsg: func(_ messages.Msg) {
					sendACalled = true
				},
				send: func(_ messages.Payload) {},
			},
		}

		session := newTestSession()
		session.AddParticipant(participantA)

		session.BroadcastTo(participantA, messages.SyncClock{}, participantA.ID)
		require.False(t, sendACalled)
	})

	t.Run("message is broadcasted to participant B once", func(t *testing.T) {
		var sendACalled bool
		participantA := &Participant{
			ID: 1,
			Responder: testResponseSender{
				sendMsg: func(_ messages.Msg) {
					sendACalled = true
				},
				send: func(_ messages.Payload) {},
			},
		}

		var sendBCalls int
		participantB := &Participant{
			ID: 2,
			Responder: testResponseSender{
				sendMsg: func(_ messages.Msg) {
					sendBCalls++
				},
				send: func(_ messages.Payload) {},
			},
		}

		session := newTestSession()
		session.AddParticipant(participantA)
		session.AddParticipant(participantB)

		session.BroadcastTo(participantA, messages.SyncClock{},
			participantB.ID,
			participantB.ID,
			participantB.ID,
			participantB.ID,
		)
		require.False(t, sendACalled)
		require.Equal(t, 1, sendBCalls)
	})

	t.Run("message to unknown participant is skipped", func(t *testing.T) {
		var sendACalled bool
		participantA := &Participant{
			ID: 1,
			Responder: testResponseSender{
				sendMsg: func(_ messages.Msg) {
					sendACalled = true
				},
				send: func(_ messages.Payload) {},
			},
		}

		session := newTestSession()
		session.AddParticipant(participantA)

		session.BroadcastTo(participantA, messages.SyncClock{}, 42)
		require.False(t, sendACalled)
	})
}

func TestSessionEdit(t *testing.T) {
	var received [3][]messages.VoxelEditBroadcast
	session := newTestSession()

	participants := make([]*Participant, 3)
	for i := range participants {
		i := i
		participants[i] = &Participant{
			ID: session.NewParticipantID(),
			Responder: testResponseSender{
				sendMsg: func(_ messages.Msg) {},
				send: func(p messages.Payload) {
					received[i] = append(received[i], p.(messages.VoxelEditBroadcast))
				},
			},
		}
		session.AddParticipant(participants[i])
	}

	cellA := voxel.Cell{Origin: mgl64.Vec3{0, 0, 0}, Size: 1}
	cellB := voxel.Cell{Origin: mgl64.Vec3{1, 0, 0}, Size: 1}

	mutations, err := session.Edit(participants[0], func(s *VoxelStore) ([]voxel.Mutation, error) {
		return s.EraseThenSet(cellA, voxel.RGB{Red: 1})
	})
	require.NoError(t, err)
	require.Len(t, mutations, 2)

	_, err = session.Edit(participants[1], func(s *VoxelStore) ([]voxel.Mutation, error) {
		m, err := s.Set(cellB, voxel.RGB{Green: 1})
		return []voxel.Mutation{m}, err
	})
	require.NoError(t, err)

	_, err = session.Edit(participants[0], func(s *VoxelStore) ([]voxel.Mutation, error) {
		m, err := s.Erase(cellA)
		return []voxel.Mutation{m}, err
	})
	require.NoError(t, err)
	require.Equal(t, 1, session.Voxels().Len())

	session.FlushEdits()

	require.Len(t, received[0], 1)
	require.Len(t, received[0][0].Edits, 1)
	require.Equal(t, participants[1].ID, received[0][0].Edits[0].ParticipantID)

	require.Len(t, received[1], 1)
	require.Len(t, received[1][0].Edits, 2)
	require.Equal(t, voxel.SetMutation, received[1][0].Edits[0].Mutations[1].Kind)
	require.Equal(t, voxel.EraseMutation, received[1][0].Edits[1].Mutations[0].Kind)

	require.Len(t, received[2], 1)
	edits := received[2][0].Edits
	require.Len(t, edits, 3)
	require.Equal(t, []uint32{1, 2, 1}, []uint32{edits[0].ParticipantID, edits[1].ParticipantID, edits[2].ParticipantID})

	// Replaying the broadcast on an empty store rebuilds the session voxels.
	replica := NewVoxelStore(0)
	for _, e := range edits {
		_, err := replica.Apply(e.Mutations...)
		require.NoError(t, err)
	}
	require.Equal(t, session.Voxels().Voxels(), replica.Voxels())

	session.FlushEdits()
	require.Len(t, received[2], 1)
}

func TestSessionEditWithoutBroadcast(t *testing.T) {
	var sent bool
	session := newTestSession()
	session.BroadcastEdits = false
	session.AddParticipant(&Participant{
		ID: 1,
		Responder: testResponseSender{
			sendMsg: func(_ messages.Msg) {},
			send: func(_ messages.Payload) {
				sent = true
			},
		},
	})

	_, err := session.Edit(nil, func(s *VoxelStore) ([]voxel.Mutation, error) {
		m, err := s.Set(voxel.Cell{Size: 1}, voxel.RGB{})
		return []voxel.Mutation{m}, err
	})
	require.NoError(t, err)

	session.FlushEdits()
	require.False(t, sent)
}

func TestSessionStoreNewID(t *testing.T) {
	sessions := SessionStore{}
	require.NotZero(t, sessions.NewID())
}

func TestSessionStoreAdd(t *testing.T) {
	t.Run("session is successfully added", func(t *testing.T) {
		var sessions SessionStore

		session := newTestSession()

		err := sessions.Add(context.Background(), session)
		require.NoError(t, err)
		require.Equal(t, session, sessions.sessions[sessions.GlobalSessionID(session.ID)])
		require.Equal(t, 1, sessions.Len())
	})
}

func TestSessionStoreRemove(t *testing.T) {
	t.Run("session is successfully removed", func(t *testing.T) {
		var sessions SessionStore

		ctx := context.Background()

		session := newTestSession()
		err := sessions.Add(ctx, session)
		require.NoError(t, err)
		require.Len(t, sessions.sessions, 1)

		sessions.Remove(ctx, session)
		require.Empty(t, sessions.sessions)
	})

	t.Run("session id is reused", func(t *testing.T) {
		var sessions SessionStore

		ctx := context.Background()

		sessionID := sessions.NewID()
		session := NewSession(sessionID, time.Second, 0)
		err := sessions.Add(ctx, session)
		require.NoError(t, err)
		require.Len(t, sessions.sessions, 1)

		sessions.Remove(ctx, session)
		require.Empty(t, sessions.sessions)

		nextSessionID := sessions.NewID()
		require.Equal(t, sessionID, nextSessionID)
	})
}

func TestSessionStoreGetByGlobalID(t *testing.T) {
	sessions := SessionStore{ServerID: "test"}
	ctx := context.Background()

	t.Run("session is retrieved", func(t *testing.T) {
		session := newTestSession()
		err := sessions.Add(ctx, session)
		require.NoError(t, err)

		res, ok := sessions.GetByGlobalID("testx2a")
		require.True(t, ok)
		require.Equal(t, session, res)
	})

	t.Run("session is not retrieved", func(t *testing.T) {
		session := &Session{ID: 84}
		res, ok := sessions.GetByGlobalID(sessions.GlobalSessionID(session.ID))
		require.False(t, ok)
		require.Nil(t, res)
	})
}

func TestSessionStartDispatchFrame(t *testing.T) {
	session := NewSession(42, time.Millisecond*5, 0)

	var wg sync.WaitGroup
	wg.Add(1)

	var once sync.Once
	session.AddParticipant(&Participant{
		ID: 2,
		Responder: testResponseSender{
			sendMsg: func(_ messages.Msg) {},
			send: func(_ messages.Payload) {
				once.Do(wg.Done)
			},
		},
	})

	go session.StartDispatchFrames()

	_, err := session.Edit(&Participant{ID: 1}, func(s *VoxelStore) ([]voxel.Mutation, error) {
		m, err := s.Set(voxel.Cell{Size: 1}, voxel.RGB{})
		return []voxel.Mutation{m}, err
	})
	require.NoError(t, err)

	wg.Wait()
	session.Close()
}

type testResponseSender struct {
	send    func(messages.Payload)
	sendMsg func(messages.Msg)
}

func (r testResponseSender) Send(payload messages.Payload) {
	r.send(payload)
}

func (r testResponseSender) SendMsg(msg messages.Msg) {
	r.sendMsg(msg)
}
