package services

import (
	"context"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"letsride-server/models"
	"letsride-server/utils/errors"
)

// eventLister is the slice of EventService the feed engine composes.
type eventLister interface {
	PublicEvents(ctx context.Context) ([]models.Event, error)
	EventsByCreator(ctx context.Context, userID string) ([]models.Event, error)
	InvitedEvents(ctx context.Context, userID string) ([]models.Event, error)
	FriendEvents(ctx context.Context, friendID string) ([]models.Event, error)
}

// friendIDSource resolves the requester's friend-id set for the fan-out.
type friendIDSource interface {
	FriendIDs(ctx context.Context, userID string) ([]string, error)
}

// FeedEntry is an event joined with its creator's public profile fields.
type FeedEntry struct {
	models.Event
	CreatorHandle    string `json:"creator_handle,omitempty"`
	CreatorName      string `json:"creator_name,omitempty"`
	CreatorAvatarURL string `json:"creator_avatar_url,omitempty"`
}

// FeedService reconciles the three visibility tiers against the per-filter
// fetch strategies and produces one consistent, de-duplicated feed.
type FeedService struct {
	events   eventLister
	friends  friendIDSource
	profiles userGetter
}

func NewFeedService(events eventLister, friends friendIDSource, profiles userGetter) *FeedService {
	return &FeedService{events: events, friends: friends, profiles: profiles}
}

// List returns the feed for one requester and filter, ordered by start time
// descending, each event appearing exactly once.
func (s *FeedService) List(ctx context.Context, userID string, filter models.EventFilter) ([]FeedEntry, error) {
	events, err := s.listEvents(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, events)
}

func (s *FeedService) listEvents(ctx context.Context, userID string, filter models.EventFilter) ([]models.Event, error) {
	switch filter {
	case models.FilterPublic:
		return s.events.PublicEvents(ctx)
	case models.FilterMyEvents:
		return s.events.EventsByCreator(ctx, userID)
	case models.FilterInvited:
		return s.events.InvitedEvents(ctx, userID)
	case models.FilterFriends:
		merged, err := s.friendFanOut(ctx, userID, nil)
		if err != nil {
			return nil, err
		}
		return sortedByStart(merged), nil
	case models.FilterAll:
		return s.listAll(ctx, userID)
	default:
		return nil, errors.ErrInvalidInput
	}
}

// listAll unions the public query, the requester's own events and the friend
// fan-out. Invite-only events stay excluded unless the requester created
// them, which the myEvents arm already covers.
func (s *FeedService) listAll(ctx context.Context, userID string) ([]models.Event, error) {
	merged := make(map[string]models.Event)

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	g.Go(func() error {
		events, err := s.events.PublicEvents(gctx)
		if err != nil {
			return err
		}
		mu.Lock()
		mergeEvents(merged, events)
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		events, err := s.events.EventsByCreator(gctx, userID)
		if err != nil {
			return err
		}
		mu.Lock()
		mergeEvents(merged, events)
		mu.Unlock()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if _, err := s.friendFanOut(ctx, userID, merged); err != nil {
		return nil, err
	}
	return sortedByStart(merged), nil
}

// friendFanOut resolves the friend-id set and issues one query per friend,
// concurrently, merging into an id-keyed map. An empty friend set returns
// immediately with no queries issued. A failed per-friend query is logged
// and contributes no events; it does not fail the aggregate.
func (s *FeedService) friendFanOut(ctx context.Context, userID string, merged map[string]models.Event) (map[string]models.Event, error) {
	friendIDs, err := s.friends.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if merged == nil {
		merged = make(map[string]models.Event)
	}
	if len(friendIDs) == 0 {
		return merged, nil
	}

	var g errgroup.Group
	var mu sync.Mutex
	for _, friendID := range friendIDs {
		friendID := friendID
		g.Go(func() error {
			events, err := s.events.FriendEvents(ctx, friendID)
			if err != nil {
				log.Printf("Feed fan-out query for friend %s failed: %v", friendID, err)
				return nil
			}
			mu.Lock()
			mergeEvents(merged, events)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return merged, nil
}

// enrich attaches creator profile fields to each event. A missing creator
// profile leaves the fields empty rather than failing the feed.
func (s *FeedService) enrich(ctx context.Context, events []models.Event) ([]FeedEntry, error) {
	creators := make(map[string]models.User)
	var mu sync.Mutex
	var g errgroup.Group
	for _, creatorID := range uniqueCreators(events) {
		creatorID := creatorID
		g.Go(func() error {
			user, err := s.profiles.GetByID(ctx, creatorID)
			if err != nil {
				log.Printf("Feed creator lookup for %s failed: %v", creatorID, err)
				return nil
			}
			mu.Lock()
			creators[creatorID] = user
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	entries := make([]FeedEntry, 0, len(events))
	for _, event := range events {
		entry := FeedEntry{Event: event}
		if creator, ok := creators[event.CreatedBy]; ok {
			entry.CreatorHandle = creator.Handle
			entry.CreatorName = creator.Name
			entry.CreatorAvatarURL = creator.AvatarURL
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// mergeEvents folds events into the id-keyed de-duplication map. Each id
// maps to a single canonical document, so overwrites are immaterial.
func mergeEvents(merged map[string]models.Event, events []models.Event) {
	for _, event := range events {
		merged[event.ID] = event
	}
}

// sortedByStart flattens the merge map into a slice ordered by start time
// descending, with id ascending as a stable tie-break.
func sortedByStart(merged map[string]models.Event) []models.Event {
	events := make([]models.Event, 0, len(merged))
	for _, event := range merged {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].StartsAt.Equal(events[j].StartsAt) {
			return events[i].StartsAt.After(events[j].StartsAt)
		}
		return events[i].ID < events[j].ID
	})
	return events
}

func uniqueCreators(events []models.Event) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, event := range events {
		if !seen[event.CreatedBy] {
			seen[event.CreatedBy] = true
			ids = append(ids, event.CreatedBy)
		}
	}
	return ids
}
