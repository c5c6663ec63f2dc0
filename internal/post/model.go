package post

import (
	"time"

	"github.com/sudo-init-do/chirp/internal/user"
)

// MaxContentLength is counted in characters, not bytes.
const MaxContentLength = 255

type Post struct {
	ID        string    `json:"id"`
	CreatorID string    `json:"creator_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Joined is a post together with its creator's public profile, the shape
// every read endpoint returns.
type Joined struct {
	Post
	Creator user.Profile `json:"creator"`
}
