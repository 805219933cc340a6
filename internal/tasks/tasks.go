package tasks

import (
	"context"

	"github.com/desertthunder/mediadesk/internal/models"
)

// ProfileFetcher loads the authenticated user's profile from the server.
type ProfileFetcher interface {
	Profile(ctx context.Context) (*models.User, error)
}

// Source lists every collection [BulkExport] can write.
type Source interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	ListMusic(ctx context.Context) ([]models.Music, error)
	ListVideos(ctx context.Context) ([]models.Video, error)
	ListLivestreams(ctx context.Context) ([]models.Livestream, error)
	ListDonations(ctx context.Context) ([]models.Donation, error)
}

// Collection names an exportable record set.
type Collection string

const (
	Users       Collection = "users"
	Music       Collection = "music"
	Videos      Collection = "videos"
	Livestreams Collection = "livestreams"
	Donations   Collection = "donations"
)

// Collections returns every known collection in export order.
func Collections() []Collection {
	return []Collection{Users, Music, Videos, Livestreams, Donations}
}

// ParseCollection validates a collection name.
func ParseCollection(s string) (Collection, bool) {
	for _, c := range Collections() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}
