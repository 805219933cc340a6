// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediadesk/internal/formatter"
	"github.com/desertthunder/mediadesk/internal/services"
	"github.com/desertthunder/mediadesk/internal/tasks"
)

func formatFlag(value string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: " + strings.Join(formatter.Formats, ", "),
		Value:   value,
	}
}

func outputFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Write to file base name instead of stdout (extension added per format)",
	}
}

// setupCommand initializes configuration and the session database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml and initialize the session database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles session lifecycle operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the signed-in session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with email and password",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Sources:  cli.EnvVars("MEDIADESK_EMAIL"),
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Account password",
						Sources:  cli.EnvVars("MEDIADESK_PASSWORD"),
						Required: true,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Clear every stored session value",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Run the auth gate and report the result",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Exchange the stored refresh token for a new access token",
				Action: r.AuthRefresh,
			},
		},
	}
}

// usersCommand handles account management
func usersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "users",
		Usage:  "Account operations",
		Before: r.requireSession,
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List accounts",
				Flags:  []cli.Flag{formatFlag(formatter.FormatText), outputFlag()},
				Action: r.UsersList,
			},
			{
				Name:  "add",
				Usage: "Register a new account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "first-name", Usage: "First name", Required: true},
					&cli.StringFlag{Name: "last-name", Usage: "Last name", Required: true},
					&cli.StringFlag{Name: "email", Usage: "Email", Required: true},
					&cli.StringFlag{Name: "username", Usage: "Username", Required: true},
					&cli.StringFlag{Name: "password", Usage: "Initial password", Required: true},
					&cli.StringFlag{Name: "role", Usage: "Account role", Value: "user"},
					&cli.StringFlag{Name: "bio", Usage: "Short biography"},
					&cli.StringFlag{Name: "website", Usage: "Website URL"},
					&cli.StringFlag{Name: "avatar", Usage: "Path to an avatar image"},
				},
				Action: r.UsersAdd,
			},
			{
				Name:  "delete",
				Usage: "Delete an account by ID",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.UsersDelete,
			},
			{
				Name:  "avatar",
				Usage: "Download the signed-in user's avatar",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Destination file",
						Value:   "avatar.jpg",
					},
				},
				Action: r.UsersAvatar,
			},
		},
	}
}

// mediaCommand handles music, video, livestream and donation operations
func mediaCommand(r *Runner) *cli.Command {
	list := func(name, usage string, action cli.ActionFunc, extra ...cli.Flag) *cli.Command {
		return &cli.Command{
			Name:   name,
			Usage:  usage,
			Flags:  append([]cli.Flag{formatFlag(formatter.FormatText), outputFlag()}, extra...),
			Action: action,
		}
	}
	query := func(facet string) []cli.Flag {
		return []cli.Flag{
			&cli.StringSliceFlag{Name: facet, Usage: "Only show items with this " + facet + " (repeatable)"},
			&cli.StringFlag{Name: "sort", Usage: "Sort by: " + strings.Join(services.SortKeys, ", ")},
			&cli.BoolFlag{Name: "desc", Usage: "Reverse the sort order"},
		}
	}

	return &cli.Command{
		Name:   "media",
		Usage:  "Media catalog operations",
		Before: r.requireSession,
		Commands: []*cli.Command{
			list("music", "List uploaded music", r.MediaMusic, query("genre")...),
			list("videos", "List uploaded videos", r.MediaVideos, query("category")...),
			list("livestreams", "List livestreams", r.MediaLivestreams, query("category")...),
			list("donations", "List donations", r.MediaDonations),
			{
				Name:  "upload-music",
				Usage: "Upload an audio track",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Track title", Required: true},
					&cli.StringFlag{Name: "artist", Usage: "Artist", Required: true},
					&cli.StringFlag{Name: "genre", Usage: "Genre"},
					&cli.StringFlag{Name: "release-date", Usage: "Release date (YYYY-MM-DD)"},
					&cli.StringFlag{Name: "description", Usage: "Description"},
					&cli.StringFlag{Name: "audio", Usage: "Path to the audio file", Required: true},
					&cli.StringFlag{Name: "cover", Usage: "Path to a cover image"},
				},
				Action: r.MediaUploadMusic,
			},
			{
				Name:  "upload-video",
				Usage: "Upload a video",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Video title", Required: true},
					&cli.StringFlag{Name: "creator", Usage: "Creator", Required: true},
					&cli.StringFlag{Name: "category", Usage: "Category"},
					&cli.StringFlag{Name: "description", Usage: "Description"},
					&cli.StringSliceFlag{Name: "tag", Usage: "Tag (repeatable)"},
					&cli.StringFlag{Name: "video", Usage: "Path to the video file", Required: true},
					&cli.StringFlag{Name: "thumbnail", Usage: "Path to a thumbnail image"},
				},
				Action: r.MediaUploadVideo,
			},
			{
				Name:  "create-stream",
				Usage: "Create a livestream",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Stream title", Required: true},
					&cli.StringFlag{Name: "host", Usage: "Host name", Required: true},
					&cli.StringFlag{Name: "category", Usage: "Category"},
					&cli.StringFlag{Name: "description", Usage: "Description"},
					&cli.StringFlag{Name: "at", Usage: "Schedule for an RFC3339 time instead of starting now"},
				},
				Action: r.MediaCreateStream,
			},
		},
	}
}

// exportCommand writes collections to disk concurrently
func exportCommand(r *Runner) *cli.Command {
	names := make([]string, 0, len(tasks.Collections()))
	for _, c := range tasks.Collections() {
		names = append(names, string(c))
	}

	return &cli.Command{
		Name:   "export",
		Usage:  "Export collections to files with a manifest",
		Before: r.requireSession,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "collection",
				Aliases: []string{"c"},
				Usage:   "Collection to export (repeatable): " + strings.Join(names, ", "),
			},
			formatFlag(formatter.FormatJSON),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: mediadesk_export_{epoch})",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent file writers",
				Value: 3,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Collection fetches per second",
				Value: 5,
			},
		},
		Action: r.Export,
	}
}

// apiCommand handles raw authenticated API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "api",
		Usage:  "Raw authenticated calls to the platform API",
		Before: r.requireSession,
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "GET a path relative to the API base URL, prints JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "POST a JSON body to a path relative to the API base URL",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// sessionCommand inspects the persisted session
func sessionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Inspect the stored session",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show session state without token values",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SessionShow,
			},
			{
				Name:   "keys",
				Usage:  "List stored session keys with their last update (sqlite driver)",
				Action: r.SessionKeys,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive terminal dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI owns the terminal",
				Value: "./tmp/mediadesk-tui.log",
			},
		},
		Action: r.TUI,
	}
}

// serveCommand starts the local web dashboard.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default from [server] config)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the dashboard in the system browser",
			},
		},
		Action: r.Serve,
	}
}
