// Package tags reads and writes the embedded metadata the organizer and
// resolver reason about (artist/title/album/year/track/disc/genre).
//
// Reading is delegated to github.com/dhowden/tag, which already covers
// MP3/FLAC/M4A/OGG container parsing (grounded on
// other_examples/87e38965_Fauli-music-janitor, which uses the same library
// for the same purpose). Writing tags back into a file has no equivalent
// library anywhere in the retrieval pack, so the ID3v2.3 writer below is a
// deliberate, narrowly-scoped stdlib implementation (see DESIGN.md).
package tags

import (
	"os"
	"strconv"

	"github.com/dhowden/tag"
	"github.com/tunevault/tunevault/internal/apperrors"
	"github.com/tunevault/tunevault/internal/model"
)

// Read extracts the existing embedded tags from path.
func Read(path string) (model.Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Tags{}, apperrors.New(err).Component("tags").Category(apperrors.CategoryIO).Build()
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		// Untagged or unrecognized files are common (that's the whole
		// point of this system); callers fall back to filename parsing.
		return model.Tags{}, nil
	}

	track, total := m.Track()
	_ = total
	disc, _ := m.Disc()
	return model.Tags{
		Artist:      m.Artist(),
		Title:       m.Title(),
		Album:       m.Album(),
		Year:        m.Year(),
		TrackNumber: track,
		DiscNumber:  disc,
		AlbumArtist: m.AlbumArtist(),
		Genre:       m.Genre(),
	}, nil
}

// Write rewrites t's tags into the file at path (spec §4.5 step 3: "Write
// new tags into the source file"). Only the MP3/ID3v2.3 container is
// supported; other containers return an error so the organizer can surface
// it as a file-operation failure (spec §7) rather than silently skip it.
func Write(path string, container string, t model.Tags) error {
	switch container {
	case "mp3":
		return writeID3v2(path, t)
	default:
		return apperrors.Newf("tag writing not supported for container %q", container).
			Component("tags").Category(apperrors.CategoryValidation).Build()
	}
}

// writeID3v2 prepends a fresh ID3v2.3 tag header ahead of the existing
// audio stream, stripping any pre-existing ID3v2 header first. This is a
// minimal, dependency-free writer covering only the text frames the
// organizer needs (TPE1/TIT2/TALB/TYER/TRCK/TPOS/TCON).
func writeID3v2(path string, t model.Tags) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return apperrors.New(err).Component("tags").Category(apperrors.CategoryIO).Build()
	}
	body = stripExistingID3v2(body)

	frames := buildFrames(t)
	header := make([]byte, 10)
	copy(header, []byte("ID3"))
	header[3], header[4] = 3, 0 // version 2.3.0
	header[5] = 0               // flags
	putSyncSafeSize(header[6:10], len(frames))

	out := append(header, frames...)
	out = append(out, body...)

	tmp := path + ".tagtmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return apperrors.New(err).Component("tags").Category(apperrors.CategoryIO).Build()
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return apperrors.New(err).Component("tags").Category(apperrors.CategoryIO).Build()
	}
	return nil
}

func stripExistingID3v2(body []byte) []byte {
	if len(body) < 10 || string(body[0:3]) != "ID3" {
		return body
	}
	size := readSyncSafeSize(body[6:10])
	end := 10 + size
	if end > len(body) {
		return body
	}
	return body[end:]
}

func buildFrames(t model.Tags) []byte {
	var out []byte
	out = append(out, textFrame("TPE1", t.Artist)...)
	out = append(out, textFrame("TIT2", t.Title)...)
	out = append(out, textFrame("TALB", t.Album)...)
	if t.Year > 0 {
		out = append(out, textFrame("TYER", strconv.Itoa(t.Year))...)
	}
	if t.TrackNumber > 0 {
		out = append(out, textFrame("TRCK", strconv.Itoa(t.TrackNumber))...)
	}
	if t.DiscNumber > 0 {
		out = append(out, textFrame("TPOS", strconv.Itoa(t.DiscNumber))...)
	}
	out = append(out, textFrame("TCON", t.Genre)...)
	return out
}

// textFrame encodes a single ISO-8859-1 text-information frame. Empty
// values are omitted.
func textFrame(id, value string) []byte {
	if value == "" {
		return nil
	}
	payload := append([]byte{0x00}, []byte(value)...) // encoding byte + text
	frame := make([]byte, 10)
	copy(frame, []byte(id))
	putUint32(frame[4:8], uint32(len(payload)))
	frame[8], frame[9] = 0, 0 // flags
	return append(frame, payload...)
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

// putSyncSafeSize encodes n as an ID3v2 28-bit sync-safe integer.
func putSyncSafeSize(b []byte, n int) {
	b[0] = byte((n >> 21) & 0x7f)
	b[1] = byte((n >> 14) & 0x7f)
	b[2] = byte((n >> 7) & 0x7f)
	b[3] = byte(n & 0x7f)
}

func readSyncSafeSize(b []byte) int {
	return int(b[0])<<21 | int(b[1])<<14 | int(b[2])<<7 | int(b[3])
}
