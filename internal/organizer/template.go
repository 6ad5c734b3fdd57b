package organizer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tunevault/tunevault/internal/model"
)

// maxPathComponent caps a single filename at 255 characters, the limiting
// component on every filesystem this runs on (spec §4.5).
const maxPathComponent = 255

var placeholder = regexp.MustCompile(`\{([a-zA-Z]+)(:[^}]*)?\}`)

// renderTemplate substitutes {artist}/{album}/{year}/{title}/{track:FMT}/
// {disc:FMT}/{albumartist}/{genre} placeholders (spec §6). Missing fields
// substitute "Unknown".
func renderTemplate(tpl string, c model.MatchCandidate, track *model.Track) string {
	return placeholder.ReplaceAllStringFunc(tpl, func(match string) string {
		m := placeholder.FindStringSubmatch(match)
		field := strings.ToLower(m[1])
		format := strings.TrimPrefix(m[2], ":")
		return renderField(field, format, c, track)
	})
}

func renderField(field, format string, c model.MatchCandidate, track *model.Track) string {
	switch field {
	case "artist":
		return orUnknown(c.Artist)
	case "album":
		return orUnknown(c.Album)
	case "year":
		if c.Year <= 0 {
			return "Unknown"
		}
		return strconv.Itoa(c.Year)
	case "title":
		return orUnknown(c.Title)
	case "track":
		return formatNumber(c.TrackNumber, format)
	case "disc":
		return formatNumber(c.DiscNumber, format)
	case "albumartist":
		v := track.Tags.AlbumArtist
		if v == "" {
			v = c.Artist
		}
		return orUnknown(v)
	case "genre":
		return orUnknown(track.Tags.Genre)
	default:
		return "Unknown"
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// formatNumber renders n zero-padded to the width named in a "0Nd"-style
// format spec (e.g. "02d" -> width 2), or plain decimal if format is empty.
func formatNumber(n int, format string) string {
	if n <= 0 {
		return "Unknown"
	}
	s := strconv.Itoa(n)
	width := 0
	for _, r := range format {
		if r < '0' || r > '9' {
			break
		}
		width = width*10 + int(r-'0')
	}
	for len(s) < width {
		s = "0" + s
	}
	return s
}

// renderFolderPath renders tpl and splits it on "/" into sanitized path
// segments (the default folder template embeds a literal "/" to separate
// artist from album).
func renderFolderPath(tpl string, c model.MatchCandidate, track *model.Track) []string {
	rendered := renderTemplate(tpl, c, track)
	parts := strings.Split(rendered, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, sanitizeComponent(p))
	}
	return out
}

// renderFilename renders tpl, appends ext, sanitizes it, and — if the
// result would exceed maxPathComponent — smart-truncates the title field
// (preserving the extension) and re-renders (spec §4.5).
func renderFilename(tpl string, c model.MatchCandidate, track *model.Track, ext string) string {
	full := sanitizeComponent(renderTemplate(tpl, c, track)) + ext
	if len(full) <= maxPathComponent {
		return full
	}

	overflow := len(full) - maxPathComponent
	truncated := c
	if len(truncated.Title) > overflow {
		truncated.Title = strings.TrimSpace(truncated.Title[:len(truncated.Title)-overflow])
	} else {
		truncated.Title = ""
	}
	return sanitizeComponent(renderTemplate(tpl, truncated, track)) + ext
}

var reservedChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// sanitizeComponent strips characters illegal in a path component on any
// supported OS, trims trailing dots/spaces (invalid on Windows), and
// disambiguates OS-reserved device names (spec §4.5: CON, PRN, AUX, NUL,
// COM1..9, LPT1..9).
func sanitizeComponent(s string) string {
	s = reservedChars.ReplaceAllString(s, "_")
	s = strings.TrimRight(s, " .")
	if s == "" {
		s = "_"
	}
	if isReservedDeviceName(s) {
		base, ext := s, ""
		if i := strings.IndexByte(s, '.'); i >= 0 {
			base, ext = s[:i], s[i:]
		}
		s = base + "_" + ext
	}
	return s
}

func isReservedDeviceName(s string) bool {
	base := s
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	base = strings.ToUpper(base)
	switch base {
	case "CON", "PRN", "AUX", "NUL":
		return true
	}
	if len(base) == 4 && (strings.HasPrefix(base, "COM") || strings.HasPrefix(base, "LPT")) {
		return base[3] >= '1' && base[3] <= '9'
	}
	return false
}
