// Package memory provides thread-safe in-memory repositories with the same uniqueness
// guarantees as the Postgres schema. Used by tests and STORE_DRIVER=memory.
package memory

import (
	"sync"

	"jan-server/services/helpdesk-api/internal/domain/channel"
	"jan-server/services/helpdesk-api/internal/domain/commitment"
	"jan-server/services/helpdesk-api/internal/domain/message"
	"jan-server/services/helpdesk-api/internal/domain/participant"
	"jan-server/services/helpdesk-api/internal/domain/ticket"
)

// Store holds every aggregate behind one lock, so multi-row operations are atomic.
type Store struct {
	mu sync.RWMutex

	channels     map[uint]*channel.Channel
	channelIDs   map[int64]uint
	users        map[uint]*participant.User
	userIDs      map[int64]uint
	messages     map[uint]*message.Message
	messageKeys  map[messageKey]uint
	cases        map[uint]*ticket.Case
	caseSources  map[uint]uint
	activities   []*ticket.Activity
	commitments  map[uint]*commitment.Commitment
	ticketNumber int64
	lastID       uint
}

type messageKey struct {
	channelID  uint
	externalID int64
}

func NewStore() *Store {
	return &Store{
		channels:    make(map[uint]*channel.Channel),
		channelIDs:  make(map[int64]uint),
		users:       make(map[uint]*participant.User),
		userIDs:     make(map[int64]uint),
		messages:    make(map[uint]*message.Message),
		messageKeys: make(map[messageKey]uint),
		cases:       make(map[uint]*ticket.Case),
		caseSources: make(map[uint]uint),
		commitments: make(map[uint]*commitment.Commitment),
	}
}

// nextID must be called with the write lock held.
func (s *Store) nextID() uint {
	s.lastID++
	return s.lastID
}

func (s *Store) Channels() *ChannelRepository       { return &ChannelRepository{s: s} }
func (s *Store) Users() *UserRepository             { return &UserRepository{s: s} }
func (s *Store) Messages() *MessageRepository       { return &MessageRepository{s: s} }
func (s *Store) Cases() *CaseRepository             { return &CaseRepository{s: s} }
func (s *Store) Commitments() *CommitmentRepository { return &CommitmentRepository{s: s} }

func copyUintPtr(p *uint) *uint {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyInt64Ptr(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
