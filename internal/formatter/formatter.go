// package formatter renders user and media listings as CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/shared"
)

// Supported output formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Formats lists every value accepted by [Render] and [WriteExport].
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// Table is a titled grid of string cells.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// UsersTable lists users with columns: ID, Name, Email, Username, Role, Status, Joined
func UsersTable(users []models.User) *Table {
	t := &Table{Name: "Users", Headers: []string{"ID", "Name", "Email", "Username", "Role", "Status", "Joined"}}
	for _, u := range users {
		u = u.Normalize()
		t.Rows = append(t.Rows, []string{u.ID, u.FullName(), u.Email, u.Username, u.Role, string(u.Status), u.Joined})
	}
	return t
}

// MusicTable lists tracks with columns: ID, Title, Artist, Genre, Released
func MusicTable(music []models.Music) *Table {
	t := &Table{Name: "Music", Headers: []string{"ID", "Title", "Artist", "Genre", "Released"}}
	for _, m := range music {
		t.Rows = append(t.Rows, []string{m.ID, m.Title, m.Artist, m.Genre, m.ReleaseDate})
	}
	return t
}

// VideosTable lists videos with columns: ID, Title, Creator, Category, Tags
func VideosTable(videos []models.Video) *Table {
	t := &Table{Name: "Videos", Headers: []string{"ID", "Title", "Creator", "Category", "Tags"}}
	for _, v := range videos {
		t.Rows = append(t.Rows, []string{v.ID, v.Title, v.Creator, v.Category, strings.Join(v.Tags, ", ")})
	}
	return t
}

// LivestreamsTable lists streams with columns: ID, Title, Host, Category, Schedule, Status
func LivestreamsTable(streams []models.Livestream) *Table {
	t := &Table{Name: "Livestreams", Headers: []string{"ID", "Title", "Host", "Category", "Schedule", "Status"}}
	for _, s := range streams {
		schedule := string(s.ScheduleType)
		if s.ScheduledAt != nil {
			schedule = s.ScheduledAt.Format(time.RFC3339)
		}
		t.Rows = append(t.Rows, []string{s.ID, s.Title, s.Host, s.Category, schedule, s.Status})
	}
	return t
}

// DonationsTable lists donations with columns: ID, Donor, Recipient, Amount, Date, Message
func DonationsTable(donations []models.Donation) *Table {
	t := &Table{Name: "Donations", Headers: []string{"ID", "Donor", "Recipient", "Amount", "Date", "Message"}}
	for _, d := range donations {
		t.Rows = append(t.Rows, []string{
			d.ID, d.Donor.Name, d.Recipient.Name, strconv.FormatFloat(d.Amount, 'f', 2, 64), d.Date, d.Message,
		})
	}
	return t
}

// ToCSV renders t as CSV with a header row.
func ToCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(t.Headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ToMarkdown renders t as a Markdown document with a title, a row count and a pipe table.
func ToMarkdown(t *Table) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", t.Name)
	fmt.Fprintf(&buf, "**Rows**: %d\n\n", len(t.Rows))

	if len(t.Headers) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| " + strings.Join(escapeCells(t.Headers), " | ") + " |\n")
	buf.WriteString("|" + strings.Repeat(" --- |", len(t.Headers)) + "\n")
	for _, row := range t.Rows {
		buf.WriteString("| " + strings.Join(escapeCells(row), " | ") + " |\n")
	}
	return buf.Bytes(), nil
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(strings.ReplaceAll(c, "|", `\|`), "\n", " ")
	}
	return out
}

// ToText renders t as aligned plain-text columns.
func ToText(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(t.Headers, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush text table: %w", err)
	}
	return buf.Bytes(), nil
}

// Render writes t to w in format. JSON output encodes raw instead of the table.
func Render(w io.Writer, t *Table, raw any, format string) error {
	data, err := encode(t, raw, format)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func encode(t *Table, raw any, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ToCSV(t)
	case FormatMarkdown:
		return ToMarkdown(t)
	case FormatText, "":
		return ToText(t)
	case FormatJSON:
		data, err := shared.MarshalJSON(raw, true)
		if err != nil {
			return nil, fmt.Errorf("JSON marshal failed: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidFlag, format, strings.Join(Formats, ", "))
	}
}

// Extension returns the file extension used for format.
func Extension(format string) string {
	switch format {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	case FormatText:
		return ".txt"
	default:
		return ".json"
	}
}

// WriteExport writes t (or raw, for JSON) to {base}{ext} and returns the path.
func WriteExport(t *Table, raw any, format, base string) (string, error) {
	if base == "" {
		base = strings.ToLower(t.Name)
	}

	data, err := encode(t, raw, format)
	if err != nil {
		return "", err
	}

	path := base + Extension(format)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// ManifestEntry describes one exported collection.
type ManifestEntry struct {
	Collection string   `json:"collection"`
	Records    int      `json:"records"`
	Files      []string `json:"files,omitempty"`
	Success    bool     `json:"success"`
	Error      string   `json:"error,omitempty"`
}

// Manifest summarizes a bulk export.
type Manifest struct {
	Format          string          `json:"format"`
	OutputDirectory string          `json:"output_directory"`
	Total           int             `json:"total"`
	Successful      int             `json:"successful"`
	Failed          int             `json:"failed"`
	CreatedAt       time.Time       `json:"created_at"`
	Entries         []ManifestEntry `json:"entries"`
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(m *Manifest, path string) error {
	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrInvalidInput)
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}
