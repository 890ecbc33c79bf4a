// Package store holds per-user view state: the last-fetched feed, the active
// filter, selections, friends and pending requests. It is purely derived
// from service results and never a source of truth. State objects are
// explicit and passed by reference; all mutation goes through action methods.
package store

import (
	"sync"

	"letsride-server/models"
	"letsride-server/services"
)

// EventsState is the feed slice of a user's session state.
type EventsState struct {
	mu         sync.Mutex
	events     []services.FeedEntry
	selectedID string
	filter     models.EventFilter
}

// SetEvents replaces the cached feed and records the filter it was fetched
// under.
func (s *EventsState) SetEvents(entries []services.FeedEntry, filter models.EventFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = entries
	s.filter = filter
}

// Events returns the cached feed and the filter it belongs to.
func (s *EventsState) Events() ([]services.FeedEntry, models.EventFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]services.FeedEntry, len(s.events))
	copy(out, s.events)
	return out, s.filter
}

// Filter returns the active filter, defaulting to "all".
func (s *EventsState) Filter() models.EventFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filter == "" {
		return models.FilterAll
	}
	return s.filter
}

// Select records the currently viewed event.
func (s *EventsState) Select(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = eventID
}

// Selected returns the currently viewed event id, if any.
func (s *EventsState) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// Upsert merges one event into the cached feed: replaces in place if
// present, otherwise prepends.
func (s *EventsState) Upsert(entry services.FeedEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cached := range s.events {
		if cached.ID == entry.ID {
			s.events[i] = entry
			return
		}
	}
	s.events = append([]services.FeedEntry{entry}, s.events...)
}

// Remove drops an event from the cached feed and clears the selection if it
// pointed at it.
func (s *EventsState) Remove(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.events[:0]
	for _, cached := range s.events {
		if cached.ID != eventID {
			kept = append(kept, cached)
		}
	}
	s.events = kept
	if s.selectedID == eventID {
		s.selectedID = ""
	}
}

// FriendsState is the social slice of a user's session state.
type FriendsState struct {
	mu       sync.Mutex
	friends  []models.User
	requests []models.FriendRequest
}

// SetFriends replaces the cached friend list.
func (s *FriendsState) SetFriends(friends []models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.friends = friends
}

// Friends returns the cached friend list.
func (s *FriendsState) Friends() []models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, len(s.friends))
	copy(out, s.friends)
	return out
}

// RemoveFriend drops one friend from the cached list.
func (s *FriendsState) RemoveFriend(friendID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.friends[:0]
	for _, friend := range s.friends {
		if friend.ID != friendID {
			kept = append(kept, friend)
		}
	}
	s.friends = kept
}

// SetRequests replaces the cached pending requests.
func (s *FriendsState) SetRequests(requests []models.FriendRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = requests
}

// Requests returns the cached pending requests.
func (s *FriendsState) Requests() []models.FriendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.FriendRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RemoveRequest drops one request from the cached list.
func (s *FriendsState) RemoveRequest(requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.requests[:0]
	for _, req := range s.requests {
		if req.ID != requestID {
			kept = append(kept, req)
		}
	}
	s.requests = kept
}

// Session groups one user's state slices. Sign-out discards the whole
// session through Registry.Drop rather than clearing slices in place.
type Session struct {
	Events  EventsState
	Friends FriendsState
}

// Registry owns all live sessions, keyed by user id. Handlers fetch a
// session by reference; they never reach for ambient globals.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Session returns the state for userID, creating it on first use.
func (r *Registry) Session(userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[userID]
	if !ok {
		session = &Session{}
		r.sessions[userID] = session
	}
	return session
}

// Drop discards a user's session state, e.g. on sign-out.
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
}
