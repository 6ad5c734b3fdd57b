// Package organizer implements the Safe Organizer (spec §4.5): path
// templating/sanitization, backup-before-mutate, atomic-with-fallback file
// moves, the durable rollback walk, and junk-aware empty-directory
// cleanup.
package organizer

import (
	"crypto/sha256"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tunevault/tunevault/internal/apperrors"
	"github.com/tunevault/tunevault/internal/conf"
	"github.com/tunevault/tunevault/internal/ledger"
	"github.com/tunevault/tunevault/internal/logging"
	"github.com/tunevault/tunevault/internal/model"
	"github.com/tunevault/tunevault/internal/tags"
)

// junkFiles are ignored by cleanup_empty_dirs; everything else (including
// user-placed cover art) blocks removal (spec §4.5).
var junkFiles = map[string]bool{
	"thumbs.db":    true,
	"desktop.ini":  true,
	".ds_store":    true,
}

// Organizer applies and reverses file mutations for one batch.
type Organizer struct {
	Settings *conf.Settings
	Ledger   *ledger.Ledger
	Log      *logging.Logger
}

// New creates an Organizer.
func New(settings *conf.Settings, ldg *ledger.Ledger, log *logging.Logger) *Organizer {
	return &Organizer{Settings: settings, Ledger: ldg, Log: log}
}

// Apply performs the ordering contract in spec §4.5: compute destination,
// back up, write tags, move, then append a ledger record. Any failure
// reverts already-performed steps, in reverse order, before the error
// surfaces.
func (o *Organizer) Apply(batchID string, track *model.Track, candidate model.MatchCandidate) (model.MoveRecord, error) {
	dest, err := o.destinationPath(candidate, track)
	if err != nil {
		return model.MoveRecord{}, err
	}

	if existing, statErr := os.Stat(dest); statErr == nil && !existing.IsDir() {
		identical, cmpErr := filesEqual(track.SourcePath, dest)
		if cmpErr == nil && identical {
			// Open Question (b): identical-bytes destination is treated
			// as a duplicate and skipped, not re-tagged or collision-
			// renamed.
			track.DestPath = dest
			return model.MoveRecord{
				BatchID: batchID, OriginalPath: track.SourcePath, CurrentPath: dest,
				Operation: model.OpMove, Reversal: model.Reversible,
			}, nil
		}
		dest = resolveCollision(dest)
	}

	dryRun := o.Settings.Batch.DryRun
	backupPath := ""
	ephemeralBackup := !o.Settings.Batch.KeepOriginals

	if o.Settings.Batch.KeepOriginals {
		backupPath = o.backupPath(track.SourcePath)
	} else if !dryRun {
		// No permanent backup requested, but step 3 still needs something to
		// restore the source from if a later step fails (spec §4.5: "steps
		// already performed are reverted in reverse order").
		backupPath = o.ephemeralBackupPath(track.SourcePath)
	}
	if !dryRun && backupPath != "" {
		if err := copyAndVerify(track.SourcePath, backupPath); err != nil {
			return model.MoveRecord{}, apperrors.New(err).Component("organizer").
				Category(apperrors.CategoryIO).Context("step", "backup").Build()
		}
	}

	if !dryRun {
		if err := tags.Write(track.SourcePath, track.Container, candidateTags(candidate, track)); err != nil {
			o.restoreFromSnapshot(track.SourcePath, backupPath)
			return model.MoveRecord{}, apperrors.New(err).Component("organizer").
				Category(apperrors.CategoryIO).Context("step", "write_tags").Build()
		}
	}

	if !dryRun {
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			o.restoreFromSnapshot(track.SourcePath, backupPath)
			return model.MoveRecord{}, apperrors.New(err).Component("organizer").
				Category(apperrors.CategoryIO).Context("step", "mkdir").Build()
		}
		if err := moveFile(track.SourcePath, dest); err != nil {
			o.restoreFromSnapshot(track.SourcePath, backupPath)
			return model.MoveRecord{}, apperrors.New(err).Component("organizer").
				Category(apperrors.CategoryIO).Context("step", "move").Build()
		}
	}

	if ephemeralBackup && backupPath != "" {
		_ = os.Remove(backupPath)
		backupPath = ""
	}

	rec := model.MoveRecord{
		BatchID:      batchID,
		OriginalPath: track.SourcePath,
		BackupPath:   backupPath,
		CurrentPath:  dest,
		Operation:    operationKind(o.Settings.Batch.KeepOriginals),
		Reversal:     model.Reversible,
		DryRun:       dryRun,
	}
	saved, err := o.Ledger.Append(rec)
	if err != nil {
		return model.MoveRecord{}, err
	}
	track.DestPath = dest
	return saved, nil
}

func operationKind(keepOriginals bool) model.OperationKind {
	if keepOriginals {
		return model.OpMoveWithTags
	}
	return model.OpMove
}

func candidateTags(c model.MatchCandidate, track *model.Track) model.Tags {
	return model.Tags{
		Artist:      c.Artist,
		Title:       c.Title,
		Album:       c.Album,
		Year:        c.Year,
		TrackNumber: c.TrackNumber,
		DiscNumber:  c.DiscNumber,
		AlbumArtist: track.Tags.AlbumArtist,
		Genre:       track.Tags.Genre,
	}
}

// restoreFromSnapshot undoes a tag write or move failure by copying the
// pre-mutation snapshot back over sourcePath, then removing the snapshot:
// an aborted apply leaves no backup behind, matching scenario S4 ("move
// aborted, backup deleted, original untouched").
func (o *Organizer) restoreFromSnapshot(sourcePath, backupPath string) {
	if backupPath == "" {
		return
	}
	_ = copyAndVerify(backupPath, sourcePath)
	_ = os.Remove(backupPath)
}

func (o *Organizer) destinationPath(c model.MatchCandidate, track *model.Track) (string, error) {
	folder := renderFolderPath(o.Settings.Batch.FolderTemplate, c, track)
	ext := filepath.Ext(track.SourcePath)
	filename := renderFilename(o.Settings.Batch.FileTemplate, c, track, ext)
	segments := append([]string{o.Settings.Batch.LibraryRoot}, folder...)
	segments = append(segments, filename)
	return filepath.Join(segments...), nil
}

// backupPath mirrors sourcePath relative to the library root under
// backup_root (spec §6: "Mirrors the source path relative to the library
// root"); a source living outside the library root falls back to mirroring
// it relative to the filesystem root instead, so the backup never escapes
// backup_root via a leading "..".
func (o *Organizer) backupPath(sourcePath string) string {
	clean := filepath.Clean(sourcePath)
	rel, err := filepath.Rel(o.Settings.Batch.LibraryRoot, clean)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = strings.TrimPrefix(clean, string(filepath.Separator))
	}
	return filepath.Join(o.Settings.Batch.BackupRoot, rel+".bak")
}

// ephemeralBackupPath is a scratch location for a pre-mutation snapshot that
// exists only to make the tag-write/move sequence reversible within a single
// Apply call; it is never part of the durable backup layout and is always
// removed before Apply returns.
func (o *Organizer) ephemeralBackupPath(sourcePath string) string {
	clean := strings.TrimPrefix(filepath.Clean(sourcePath), string(filepath.Separator))
	flat := strings.ReplaceAll(clean, string(filepath.Separator), "_")
	return filepath.Join(os.TempDir(), "tunevault-revert-"+flat)
}

// resolveCollision appends " (n)" before the extension until path is free
// (spec §4.5 step 1).
func resolveCollision(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := base + " (" + itoa(n) + ")" + ext
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// copyAndVerify copies src to dst and checks the byte count matches (spec
// §4.5 step 2: "verify the copy's size equals the source").
func copyAndVerify(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	n, err := copyFile(src, dst)
	if err != nil {
		return err
	}
	if n != srcInfo.Size() {
		_ = os.Remove(dst)
		return apperrors.Newf("backup size mismatch: wrote %d, expected %d", n, srcInfo.Size()).
			Component("organizer").Category(apperrors.CategoryIO).Build()
	}
	return nil
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	return io.Copy(out, in)
}

// moveFile tries an atomic rename first; any failure (including, but not
// limited to, a cross-device rename) falls back to copy-verify-delete
// (spec §4.5 step 4). Checking the OS-specific EXDEV errno would require
// per-platform build tags for no behavioral gain, since the fallback path
// is correct (if slower) for a same-device failure too.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := copyAndVerify(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		_ = os.Remove(dst)
		return apperrors.New(err).Component("organizer").
			Category(apperrors.CategoryIO).Context("step", "remove_source").Build()
	}
	return nil
}

func filesEqual(a, b string) (bool, error) {
	infoA, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	infoB, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	if infoA.Size() != infoB.Size() {
		return false, nil
	}
	hashA, err := fileHash(a)
	if err != nil {
		return false, err
	}
	hashB, err := fileHash(b)
	if err != nil {
		return false, err
	}
	return hashA == hashB, nil
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return string(h.Sum(nil)), nil
}
