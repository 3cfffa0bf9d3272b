package models

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/voxedit/messages"
	"github.com/aukilabs/voxedit/voxel"
	"github.com/google/uuid"
)

// Session represents a session where participants edit a shared voxel store.
type Session struct {
	ID          uint32
	SessionUUID string

	AppKey string

	// Reports whether edits are broadcasted to the other participants.
	BroadcastEdits bool

	participantIDs   SequentialIDGenerator
	participantMutex sync.RWMutex
	participants     map[uint32]*Participant

	voxels *VoxelStore

	moduleStates map[string]any
	moduleMutex  sync.RWMutex

	startFrameOnce sync.Once
	closeFrameChan chan struct{}
	frameTicker    *time.Ticker

	editMutex    sync.Mutex
	pendingEdits []messages.VoxelEdit

	closeOnce sync.Once
}

func NewSession(id uint32, frameDuration time.Duration, maxVoxels int) *Session {
	return &Session{
		ID:             id,
		SessionUUID:    uuid.New().String(),
		BroadcastEdits: true,
		closeFrameChan: make(chan struct{}, 1),
		frameTicker:    time.NewTicker(frameDuration),
		participants:   make(map[uint32]*Participant),
		voxels:         NewVoxelStore(maxVoxels),
		moduleStates:   make(map[string]any),
	}
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.frameTicker.Stop()
		s.closeFrameChan <- struct{}{}
	})
}

func (s *Session) NewParticipantID() uint32 {
	return s.participantIDs.New()
}

func (s *Session) AddParticipant(p *Participant) {
	s.participantMutex.Lock()
	defer s.participantMutex.Unlock()

	s.participants[p.ID] = p
}

func (s *Session) RemoveParticipant(p *Participant) {
	s.participantMutex.Lock()
	defer s.participantMutex.Unlock()

	delete(s.participants, p.ID)
}

func (s *Session) GetParticipants() []*Participant {
	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	participants := make([]*Participant, 0, len(s.participants))
	for _, p := range s.participants {
		participants = append(participants, p)
	}
	return participants
}

func (s *Session) GetParticipantsByIDs(ids ...uint32) []*Participant {
	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	participants := make([]*Participant, 0, len(ids))
	for _, id := range ids {
		p, ok := s.participants[id]
		if ok {
			participants = append(participants, p)
		}
	}
	return participants
}

func (s *Session) ParticipantCount() int {
	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	return len(s.participants)
}

// Voxels returns the voxel store shared by the session participants.
func (s *Session) Voxels() *VoxelStore {
	return s.voxels
}

// Edit applies an edit to the session voxels and queues the resulting
// mutations to be broadcasted at the next frame. Edits are queued in the
// order they are applied.
func (s *Session) Edit(sender *Participant, edit func(*VoxelStore) ([]voxel.Mutation, error)) ([]voxel.Mutation, error) {
	s.editMutex.Lock()
	defer s.editMutex.Unlock()

	mutations, err := edit(s.voxels)
	if len(mutations) == 0 || !s.BroadcastEdits {
		return mutations, err
	}

	var participantID uint32
	if sender != nil {
		participantID = sender.ID
	}

	s.pendingEdits = append(s.pendingEdits, messages.VoxelEdit{
		ParticipantID: participantID,
		Mutations:     mutations,
	})
	return mutations, err
}

// FlushEdits sends the queued edits to every participant except the ones
// that made them.
func (s *Session) FlushEdits() {
	s.editMutex.Lock()
	edits := s.pendingEdits
	s.pendingEdits = nil
	s.editMutex.Unlock()

	if len(edits) == 0 {
		return
	}

	for _, p := range s.GetParticipants() {
		var broadcast messages.VoxelEditBroadcast
		var count int

		for _, e := range edits {
			if e.ParticipantID == p.ID {
				continue
			}
			broadcast.Edits = append(broadcast.Edits, e)
			count += len(e.Mutations)
		}

		if len(broadcast.Edits) == 0 {
			continue
		}
		p.Responder.Send(broadcast)
		instrumentBroadcastMutations(count)
	}
}

func (s *Session) Broadcast(sender *Participant, payload messages.Payload) {
	msg, err := messages.MsgFromPayload(payload)
	if err != nil {
		logs.WithTag("message", payload).Debug(err)
		return
	}

	for _, p := range s.GetParticipants() {
		if p == sender {
			continue
		}
		p.Responder.SendMsg(msg)
	}
}

func (s *Session) BroadcastTo(sender *Participant, payload messages.Payload, participantIds ...uint32) {
	participants := s.GetParticipantsByIDs(participantIds...)
	isParticipantHandled := make(map[uint32]struct{}, len(participantIds))

	msg, err := messages.MsgFromPayload(payload)
	if err != nil {
		logs.WithTag("message", payload).Debug(err)
		return
	}

	for _, p := range participants {
		if p == sender {
			continue
		}

		if _, ok := isParticipantHandled[p.ID]; ok {
			continue
		}
		isParticipantHandled[p.ID] = struct{}{}

		p.Responder.SendMsg(msg)
	}
}

func (s *Session) SetModuleState(moduleName string, state any) {
	s.moduleMutex.Lock()
	defer s.moduleMutex.Unlock()

	s.moduleStates[moduleName] = state
}

func (s *Session) ModuleState(moduleName string) (any, bool) {
	s.moduleMutex.RLock()
	defer s.moduleMutex.RUnlock()

	state, ok := s.moduleStates[moduleName]
	return state, ok
}

// StartDispatchFrames flushes the queued edits at every frame until the
// session is closed.
func (s *Session) StartDispatchFrames() {
	s.startFrameOnce.Do(func() {
		for {
			select {
			case <-s.closeFrameChan:
				return

			case <-s.frameTicker.C:
				s.FlushEdits()
			}
		}
	})
}

type SessionStore struct {
	// The id of the server, used as the global session id prefix.
	ServerID string

	initOnce sync.Once
	mutex    sync.RWMutex
	sessions map[string]*Session
	ids      SequentialIDGenerator
}

func (s *SessionStore) init() {
	s.sessions = map[string]*Session{}

	if s.ServerID == "" {
		s.ServerID = "vox"
	}
}

func (s *SessionStore) NewID() uint32 {
	return s.ids.New()
}

func (s *SessionStore) Add(ctx context.Context, session *Session) error {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sessions[s.GlobalSessionID(session.ID)] = session

	instrumentIncreaseSessionGauge(session.AppKey)
	instrumentCountSession(session.AppKey)
	return nil
}

func (s *SessionStore) Remove(ctx context.Context, session *Session) {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.sessions, s.GlobalSessionID(session.ID))
	session.Close()

	s.ids.Reuse(session.ID)

	instrumentDecreaseSessionGauge(session.AppKey)
}

func (s *SessionStore) GetByGlobalID(v string) (*Session, bool) {
	s.initOnce.Do(s.init)

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	session, ok := s.sessions[v]
	return session, ok
}

func (s *SessionStore) Len() int {
	s.initOnce.Do(s.init)

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.sessions)
}

func (s *SessionStore) GlobalSessionID(sessionID uint32) string {
	s.initOnce.Do(s.init)
	return fmt.Sprintf("%sx%x", s.ServerID, sessionID)
}
