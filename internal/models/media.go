package models

import "time"

// Music is an uploaded audio track.
type Music struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Genre       string `json:"genre"`
	ReleaseDate string `json:"releaseDate"`
	Description string `json:"description,omitempty"`
	CoverImage  string `json:"coverImage,omitempty"`
	AudioFile   string `json:"audioFile,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// MusicUpload is the form submitted when uploading music.
type MusicUpload struct {
	Title       string
	Artist      string
	Genre       string
	ReleaseDate string
	Description string
	AudioPath   string
	CoverPath   string
}

// Video is an uploaded video.
type Video struct {
	ID          string   `json:"_id"`
	Title       string   `json:"title"`
	Creator     string   `json:"creator"`
	Category    string   `json:"category"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	VideoFile   string   `json:"videoFile,omitempty"`
	CreatedAt   string   `json:"createdAt,omitempty"`
}

// VideoUpload is the form submitted when uploading a video.
type VideoUpload struct {
	Title         string
	Creator       string
	Category      string
	Description   string
	Tags          []string
	VideoPath     string
	ThumbnailPath string
}

// ScheduleType selects whether a livestream starts immediately.
type ScheduleType string

const (
	ScheduleNow       ScheduleType = "now"
	ScheduleScheduled ScheduleType = "scheduled"
)

// Livestream is a live or scheduled stream.
type Livestream struct {
	ID           string       `json:"_id"`
	Title        string       `json:"title"`
	Host         string       `json:"host"`
	Category     string       `json:"category"`
	Description  string       `json:"description,omitempty"`
	ScheduleType ScheduleType `json:"scheduleType"`
	ScheduledAt  *time.Time   `json:"scheduledAt,omitempty"`
	Status       string       `json:"status,omitempty"`
	Viewers      int          `json:"viewers,omitempty"`
}

// LivestreamDraft is the payload for creating a livestream.
type LivestreamDraft struct {
	Title        string       `json:"title"`
	Host         string       `json:"host"`
	Category     string       `json:"category"`
	Description  string       `json:"description,omitempty"`
	ScheduleType ScheduleType `json:"scheduleType"`
	ScheduledAt  *time.Time   `json:"scheduledAt,omitempty"`
}

// Party is one side of a donation.
type Party struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Donation records a transfer from donor to recipient.
type Donation struct {
	ID        string  `json:"id"`
	Donor     Party   `json:"donor"`
	Recipient Party   `json:"recipient"`
	Amount    float64 `json:"amount"`
	Date      string  `json:"date"`
	Message   string  `json:"message,omitempty"`
}
