package conf

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// knownTemplateFields are the placeholders §6 allows in folder/file
// templates, with an optional ":02d"-style format spec on "track"/"disc".
var knownTemplateFields = map[string]bool{
	"artist": true, "album": true, "year": true, "title": true,
	"track": true, "disc": true, "albumartist": true, "genre": true,
}

var templatePlaceholder = regexp.MustCompile(`\{([^{}:]+)(:[^}]*)?\}`)

// Validate checks the safety invariants that must hold before any batch
// starts (spec §7, §4.5). It never mutates Settings.
func (s *Settings) Validate() error {
	if s.Batch.AutoApplyThreshold < 0 || s.Batch.AutoApplyThreshold > 100 {
		return fmt.Errorf("conf: auto_apply_threshold must be 0..100, got %d", s.Batch.AutoApplyThreshold)
	}
	if s.Batch.ReviewThreshold < 0 || s.Batch.ReviewThreshold > 100 {
		return fmt.Errorf("conf: review_threshold must be 0..100, got %d", s.Batch.ReviewThreshold)
	}
	if s.Batch.ReviewThreshold > s.Batch.AutoApplyThreshold {
		return fmt.Errorf("conf: review_threshold (%d) must not exceed auto_apply_threshold (%d)",
			s.Batch.ReviewThreshold, s.Batch.AutoApplyThreshold)
	}
	if s.Batch.WorkerCount < 1 {
		return fmt.Errorf("conf: worker_count must be positive, got %d", s.Batch.WorkerCount)
	}
	if s.Batch.LibraryRoot == "" {
		return fmt.Errorf("conf: library_root is required")
	}
	if err := validateLibraryRoot(s.Batch.LibraryRoot); err != nil {
		return err
	}
	if err := validateTemplate(s.Batch.FolderTemplate); err != nil {
		return fmt.Errorf("conf: folder_template: %w", err)
	}
	if err := validateTemplate(s.Batch.FileTemplate); err != nil {
		return fmt.Errorf("conf: file_template: %w", err)
	}
	return nil
}

// validateLibraryRoot enforces spec §4.5: "The library root must be at
// least two filesystem levels below the root (blocks /, /usr, C:\Windows,
// etc.)".
func validateLibraryRoot(root string) error {
	clean := filepath.Clean(root)
	if !filepath.IsAbs(clean) {
		return fmt.Errorf("conf: library_root must be an absolute path, got %q", root)
	}
	depth := pathDepth(clean)
	if depth < 2 {
		return fmt.Errorf("conf: library_root %q is too shallow (must be at least 2 levels below the filesystem root)", root)
	}
	return nil
}

// pathDepth counts non-empty path components, ignoring a Windows drive
// letter / volume name if present.
func pathDepth(clean string) int {
	vol := filepath.VolumeName(clean)
	rest := strings.TrimPrefix(clean, vol)
	rest = strings.Trim(rest, `/\`)
	if rest == "" {
		return 0
	}
	parts := strings.FieldsFunc(rest, func(r rune) bool { return r == '/' || r == '\\' })
	return len(parts)
}

// validateTemplate checks that a path template is well-formed and only
// references known fields. A malformed template is a fail-fast
// configuration error (spec §7); callers falling back silently to defaults
// happens only for missing-field substitution at render time, not here.
func validateTemplate(tpl string) error {
	if tpl == "" {
		return fmt.Errorf("template must not be empty")
	}
	depth := 0
	for _, r := range tpl {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced %q in template %q", "}", tpl)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced braces in template %q", tpl)
	}
	for _, m := range templatePlaceholder.FindAllStringSubmatch(tpl, -1) {
		if !knownTemplateFields[strings.ToLower(m[1])] {
			return fmt.Errorf("unknown field %q in template %q", m[1], tpl)
		}
	}
	return nil
}
