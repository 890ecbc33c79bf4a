package store

import (
	"testing"

	"letsride-server/models"
	"letsride-server/services"
)

func entry(id string) services.FeedEntry {
	return services.FeedEntry{Event: models.Event{ID: id, Title: "Ride " + id}}
}

func cachedIDs(s *EventsState) []string {
	entries, _ := s.Events()
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

func TestEventsStateDefaultFilter(t *testing.T) {
	var s EventsState
	if got := s.Filter(); got != models.FilterAll {
		t.Fatalf("expected default filter all, got %q", got)
	}
	s.SetEvents(nil, models.FilterFriends)
	if got := s.Filter(); got != models.FilterFriends {
		t.Fatalf("expected friends, got %q", got)
	}
}

func TestEventsStateSetAndRead(t *testing.T) {
	var s EventsState
	s.SetEvents([]services.FeedEntry{entry("a"), entry("b")}, models.FilterPublic)

	entries, filter := s.Events()
	if len(entries) != 2 || filter != models.FilterPublic {
		t.Fatalf("got %d entries, filter %q", len(entries), filter)
	}

	// Mutating the returned slice must not affect the cached copy.
	entries[0] = entry("zzz")
	if ids := cachedIDs(&s); ids[0] != "a" {
		t.Fatalf("cached feed mutated through returned slice: %v", ids)
	}
}

func TestEventsStateUpsert(t *testing.T) {
	var s EventsState
	s.SetEvents([]services.FeedEntry{entry("a"), entry("b")}, models.FilterAll)

	updated := entry("b")
	updated.Title = "Ride b updated"
	s.Upsert(updated)
	entries, _ := s.Events()
	if len(entries) != 2 || entries[1].Title != "Ride b updated" {
		t.Fatalf("expected in-place replace, got %+v", entries)
	}

	s.Upsert(entry("c"))
	if ids := cachedIDs(&s); len(ids) != 3 || ids[0] != "c" {
		t.Fatalf("expected new entry prepended, got %v", ids)
	}
}

func TestEventsStateRemoveClearsSelection(t *testing.T) {
	var s EventsState
	s.SetEvents([]services.FeedEntry{entry("a"), entry("b")}, models.FilterAll)
	s.Select("a")

	s.Remove("a")
	if ids := cachedIDs(&s); len(ids) != 1 || ids[0] != "b" {
		t.Fatalf("expected [b], got %v", ids)
	}
	if s.Selected() != "" {
		t.Fatal("expected selection cleared when selected event removed")
	}

	s.Select("b")
	s.Remove("nonexistent")
	if s.Selected() != "b" {
		t.Fatal("removing another event must keep the selection")
	}
}

func TestFriendsStateRemove(t *testing.T) {
	var s FriendsState
	s.SetFriends([]models.User{{ID: "u1"}, {ID: "u2"}})
	s.RemoveFriend("u1")

	friends := s.Friends()
	if len(friends) != 1 || friends[0].ID != "u2" {
		t.Fatalf("expected [u2], got %+v", friends)
	}
}

func TestFriendsStateRequests(t *testing.T) {
	var s FriendsState
	s.SetRequests([]models.FriendRequest{{ID: "r1"}, {ID: "r2"}})
	s.RemoveRequest("r2")

	reqs := s.Requests()
	if len(reqs) != 1 || reqs[0].ID != "r1" {
		t.Fatalf("expected [r1], got %+v", reqs)
	}
}

func TestRegistrySessionIdentity(t *testing.T) {
	registry := NewRegistry()
	first := registry.Session("u1")
	second := registry.Session("u1")
	if first != second {
		t.Fatal("expected the same session for repeated lookups")
	}
	if registry.Session("u2") == first {
		t.Fatal("expected distinct sessions per user")
	}
}

func TestRegistryDrop(t *testing.T) {
	registry := NewRegistry()
	session := registry.Session("u1")
	session.Events.Select("a")

	registry.Drop("u1")
	if registry.Session("u1").Events.Selected() != "" {
		t.Fatal("expected a fresh session after drop")
	}
}
