package post

import (
	"github.com/sudo-init-do/chirp/internal/apperr"
	"github.com/sudo-init-do/chirp/internal/user"
)

// Join attaches each post's creator profile, preserving post order.
//
// creators must cover every CreatorID in posts. A post whose creator is
// missing, or has no display name, fails the whole call with
// CREATOR_NOT_FOUND: under referential integrity that cannot happen, so a
// partial page would hide a data fault.
func Join(posts []Post, creators []user.Profile) ([]Joined, error) {
	byID := make(map[string]user.Profile, len(creators))
	for _, c := range creators {
		byID[c.ID] = c
	}

	out := make([]Joined, 0, len(posts))
	for _, p := range posts {
		creator, ok := byID[p.CreatorID]
		if !ok || creator.Name == "" {
			return nil, apperr.CreatorNotFound(p.ID)
		}
		out = append(out, Joined{Post: p, Creator: creator})
	}
	return out, nil
}

// creatorIDs returns the distinct creator IDs in first-seen order.
func creatorIDs(posts []Post) []string {
	seen := make(map[string]bool, len(posts))
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		if !seen[p.CreatorID] {
			seen[p.CreatorID] = true
			ids = append(ids, p.CreatorID)
		}
	}
	return ids
}
