package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/mediadesk/internal/api"
	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/shared"
)

// MediaService manages music, videos, livestreams and donations.
type MediaService struct {
	client *api.Client
}

func NewMediaService(client *api.Client) *MediaService {
	return &MediaService{client: client}
}

func (s *MediaService) ListMusic(ctx context.Context) ([]models.Music, error) {
	return list[models.Music](ctx, s.client, "/music", "music")
}

func (s *MediaService) ListVideos(ctx context.Context) ([]models.Video, error) {
	return list[models.Video](ctx, s.client, "/videos", "videos")
}

func (s *MediaService) ListLivestreams(ctx context.Context) ([]models.Livestream, error) {
	return list[models.Livestream](ctx, s.client, "/livestreams", "livestreams")
}

func (s *MediaService) ListDonations(ctx context.Context) ([]models.Donation, error) {
	return list[models.Donation](ctx, s.client, "/donations", "donations")
}

func list[T any](ctx context.Context, c *api.Client, path, field string) ([]T, error) {
	resp, err := c.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[T](resp, field)
}

// UploadMusic sends an audio file with its metadata and optional cover image.
func (s *MediaService) UploadMusic(ctx context.Context, m models.MusicUpload) (*models.Music, error) {
	if m.Title == "" || m.AudioPath == "" {
		return nil, fmt.Errorf("%w: title and audio file are required", shared.ErrMissingArgument)
	}

	form := &api.Multipart{}
	setField(form, "title", m.Title)
	setField(form, "artist", m.Artist)
	setField(form, "genre", m.Genre)
	setField(form, "releaseDate", m.ReleaseDate)
	setField(form, "description", m.Description)

	closeFiles, err := openAttachments(form,
		attachment{field: "audioFile", path: m.AudioPath},
		attachment{field: "coverImage", path: m.CoverPath},
	)
	if err != nil {
		return nil, err
	}
	defer closeFiles()

	resp, err := s.client.PostMultipart(ctx, "/music/upload", form)
	if err != nil {
		return nil, err
	}
	return decodeOne[models.Music](resp, "music")
}

// UploadVideo sends a video file with its metadata and optional thumbnail.
func (s *MediaService) UploadVideo(ctx context.Context, v models.VideoUpload) (*models.Video, error) {
	if v.Title == "" || v.VideoPath == "" {
		return nil, fmt.Errorf("%w: title and video file are required", shared.ErrMissingArgument)
	}

	form := &api.Multipart{}
	setField(form, "title", v.Title)
	setField(form, "creator", v.Creator)
	setField(form, "category", v.Category)
	setField(form, "description", v.Description)
	setField(form, "tags", strings.Join(v.Tags, ","))

	closeFiles, err := openAttachments(form,
		attachment{field: "videoFile", path: v.VideoPath},
		attachment{field: "thumbnail", path: v.ThumbnailPath},
	)
	if err != nil {
		return nil, err
	}
	defer closeFiles()

	resp, err := s.client.PostMultipart(ctx, "/videos/upload", form)
	if err != nil {
		return nil, err
	}
	return decodeOne[models.Video](resp, "video")
}

// CreateLivestream schedules a stream. A scheduled stream needs a start time.
func (s *MediaService) CreateLivestream(ctx context.Context, d models.LivestreamDraft) (*models.Livestream, error) {
	if d.Title == "" {
		return nil, fmt.Errorf("%w: title is required", shared.ErrMissingArgument)
	}
	switch d.ScheduleType {
	case "":
		d.ScheduleType = models.ScheduleNow
	case models.ScheduleNow:
	case models.ScheduleScheduled:
		if d.ScheduledAt == nil {
			return nil, fmt.Errorf("%w: scheduled streams need a start time", shared.ErrInvalidInput)
		}
	default:
		return nil, fmt.Errorf("%w: unknown schedule type %q", shared.ErrInvalidInput, d.ScheduleType)
	}
	if d.ScheduleType == models.ScheduleNow {
		d.ScheduledAt = nil
	}

	resp, err := s.client.Post(ctx, "/livestreams", d)
	if err != nil {
		return nil, err
	}
	return decodeOne[models.Livestream](resp, "livestream")
}

// Catalog combines both services into the export source.
type Catalog struct {
	*UserService
	*MediaService
}

func NewCatalog(users *UserService, media *MediaService) *Catalog {
	return &Catalog{UserService: users, MediaService: media}
}
