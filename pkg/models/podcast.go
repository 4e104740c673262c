package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Podcast is the podcast-specific media aggregate attached to a library item.
type Podcast struct {
	bun.BaseModel `bun:"table:podcasts,alias:p"`

	ID            int       `bun:",pk,nullzero" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LibraryItemID string    `bun:",nullzero" json:"library_item_id"`

	Title       string  `bun:",nullzero" json:"title"`
	SortTitle   string  `bun:",nullzero" json:"sort_title"`
	Author      *string `json:"author,omitempty"`
	Description *string `json:"description,omitempty"`
	FeedURL     *string `json:"feed_url,omitempty"`
	ITunesID    *string `bun:"itunes_id" json:"itunes_id,omitempty"`
	Language    *string `json:"language,omitempty"`

	Genres StringList `bun:",nullzero" json:"genres"`
	Tags   StringList `bun:",nullzero" json:"tags"`

	CoverPath *string `json:"cover_path,omitempty"`

	Episodes []*PodcastEpisode `bun:"rel:has-many,join:id=podcast_id" json:"episodes,omitempty"`
}

// PodcastEpisode is one episode backed by one audio file of the parent item.
type PodcastEpisode struct {
	bun.BaseModel `bun:"table:podcast_episodes,alias:pe"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	PodcastID int       `bun:",nullzero" json:"podcast_id"`

	Title       string  `bun:",nullzero" json:"title"`
	Season      *string `json:"season,omitempty"`
	Episode     *string `json:"episode,omitempty"`
	Description *string `json:"description,omitempty"`
	PublishedAt *string `json:"published_at,omitempty"`

	// Backing audio file identity, matched by path first and
	// (ino, device_id) fallback during reconciliation.
	AudioRelPath string  `bun:",nullzero" json:"audio_rel_path"`
	AudioIno     uint64  `json:"audio_ino"`
	AudioDevice  uint64  `json:"audio_device"`
	AudioSize    int64   `json:"audio_size"`
	DurationSec  float64 `json:"duration_sec"`
}
