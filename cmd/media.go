package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediadesk/internal/formatter"
	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/services"
	"github.com/desertthunder/mediadesk/internal/shared"
)

// mediaQuery reads the filter and sort flags of a media listing.
func mediaQuery(cmd *cli.Command, facet string) (services.MediaQuery, error) {
	key, err := services.ParseSortKey(cmd.String("sort"))
	if err != nil {
		return services.MediaQuery{}, err
	}
	return services.MediaQuery{Facets: cmd.StringSlice(facet), Sort: key, Desc: cmd.Bool("desc")}, nil
}

// MediaMusic lists uploaded music, optionally filtered by genre and sorted.
func (r *Runner) MediaMusic(ctx context.Context, cmd *cli.Command) error {
	q, err := mediaQuery(cmd, "genre")
	if err != nil {
		return err
	}
	music, err := r.media.ListMusic(ctx)
	if err != nil {
		return err
	}
	music = q.Music(music)
	return r.render(cmd, formatter.MusicTable(music), music)
}

// MediaVideos lists uploaded videos, optionally filtered by category and sorted.
func (r *Runner) MediaVideos(ctx context.Context, cmd *cli.Command) error {
	q, err := mediaQuery(cmd, "category")
	if err != nil {
		return err
	}
	videos, err := r.media.ListVideos(ctx)
	if err != nil {
		return err
	}
	videos = q.Videos(videos)
	return r.render(cmd, formatter.VideosTable(videos), videos)
}

// MediaLivestreams lists livestreams, optionally filtered by category and sorted.
func (r *Runner) MediaLivestreams(ctx context.Context, cmd *cli.Command) error {
	q, err := mediaQuery(cmd, "category")
	if err != nil {
		return err
	}
	streams, err := r.media.ListLivestreams(ctx)
	if err != nil {
		return err
	}
	streams = q.Livestreams(streams)
	return r.render(cmd, formatter.LivestreamsTable(streams), streams)
}

// MediaDonations lists donations.
func (r *Runner) MediaDonations(ctx context.Context, cmd *cli.Command) error {
	donations, err := r.media.ListDonations(ctx)
	if err != nil {
		return err
	}
	return r.render(cmd, formatter.DonationsTable(donations), donations)
}

// MediaUploadMusic uploads an audio track with an optional cover.
func (r *Runner) MediaUploadMusic(ctx context.Context, cmd *cli.Command) error {
	up := models.MusicUpload{
		Title:       cmd.String("title"),
		Artist:      cmd.String("artist"),
		Genre:       cmd.String("genre"),
		ReleaseDate: cmd.String("release-date"),
		Description: cmd.String("description"),
		AudioPath:   cmd.String("audio"),
		CoverPath:   cmd.String("cover"),
	}

	r.logger.Info("uploading music", "title", up.Title, "file", up.AudioPath)
	m, err := r.media.UploadMusic(ctx, up)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Uploaded %q by %s (%s)\n", m.Title, m.Artist, m.ID)
}

// MediaUploadVideo uploads a video with an optional thumbnail.
func (r *Runner) MediaUploadVideo(ctx context.Context, cmd *cli.Command) error {
	up := models.VideoUpload{
		Title:         cmd.String("title"),
		Creator:       cmd.String("creator"),
		Category:      cmd.String("category"),
		Description:   cmd.String("description"),
		Tags:          cmd.StringSlice("tag"),
		VideoPath:     cmd.String("video"),
		ThumbnailPath: cmd.String("thumbnail"),
	}

	r.logger.Info("uploading video", "title", up.Title, "file", up.VideoPath)
	v, err := r.media.UploadVideo(ctx, up)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Uploaded %q by %s (%s)\n", v.Title, v.Creator, v.ID)
}

// MediaCreateStream creates a livestream that starts now, or at --at.
func (r *Runner) MediaCreateStream(ctx context.Context, cmd *cli.Command) error {
	d := models.LivestreamDraft{
		Title:        cmd.String("title"),
		Host:         cmd.String("host"),
		Category:     cmd.String("category"),
		Description:  cmd.String("description"),
		ScheduleType: models.ScheduleNow,
	}

	if at := cmd.String("at"); at != "" {
		ts, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return fmt.Errorf("%w: --at must be RFC3339: %v", shared.ErrInvalidFlag, err)
		}
		d.ScheduleType = models.ScheduleScheduled
		d.ScheduledAt = &ts
	}

	s, err := r.media.CreateLivestream(ctx, d)
	if err != nil {
		return err
	}

	r.writePlain("✓ Created livestream %q (%s)\n", s.Title, s.ID)
	if s.ScheduledAt != nil {
		r.writePlain("Scheduled for %s\n", s.ScheduledAt.Local().Format(time.RFC1123))
	}
	return nil
}
