package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/sirupsen/logrus"
	"github.com/yks-player/yks/constant"
	"github.com/yks-player/yks/filesystem"
	"github.com/yks-player/yks/media"
	"github.com/yks-player/yks/util"
)

// ExportReport summarizes a written bundle.
type ExportReport struct {
	Path    string
	Items   int
	Files   int
	Skipped []string
}

// ExportBundle writes snapshot to a zip archive at dest. Local files are copied once
// per distinct source path and referenced from the manifest by their name inside the bundle.
// Local entries whose file is missing are left out with a warning.
// Remote entries keep their URL.
func ExportBundle(ctx context.Context, snapshot media.Snapshot, dest string, logger logrus.FieldLogger) (ExportReport, error) {
	if !strings.HasSuffix(strings.ToLower(dest), constant.BundleExt) {
		dest += constant.BundleExt
	}

	report := ExportReport{Path: dest}
	if len(snapshot.Items) == 0 {
		return report, &ExportError{Path: dest, Err: ErrEmptyQueue}
	}

	fs := filesystem.API()
	if err := fs.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return report, &ExportError{Path: dest, Err: err}
	}

	tmp := fmt.Sprintf("%s.%s.tmp", dest, uuid.NewString())
	file, err := fs.Create(tmp)
	if err != nil {
		return report, &ExportError{Path: dest, Err: err}
	}

	fail := func(err error) (ExportReport, error) {
		_ = file.Close()
		_ = fs.Remove(tmp)
		return report, &ExportError{Path: dest, Err: err}
	}

	archive := zip.NewWriter(file)

	var (
		current, hasCurrent = snapshot.Current()
		manifest            = media.Snapshot{Items: make([]media.Item, 0, len(snapshot.Items)), CurrentIndex: media.NoSelection}
		packed              = make(map[string]string)
		taken               = map[string]struct{}{constant.BundleManifest: {}}
	)

	for _, item := range snapshot.Items {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		if !item.Kind.IsLocal() {
			manifest.Items = append(manifest.Items, item)
			continue
		}

		name, ok := packed[item.URL]
		if !ok {
			if !filesystem.Exists(item.URL) {
				logger.Warnf("skipping %s: file not found", item.URL)
				report.Skipped = append(report.Skipped, item.URL)
				continue
			}

			name = util.UniqueName(filepath.Base(item.URL), taken)
			if err := packFile(archive, item.URL, name); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					logger.Warnf("skipping %s: file vanished during export", item.URL)
					report.Skipped = append(report.Skipped, item.URL)
					delete(taken, name)
					continue
				}
				return fail(err)
			}

			packed[item.URL] = name
			report.Files++
		}

		manifest.Items = append(manifest.Items, item.WithURL(name))
	}

	if hasCurrent {
		manifest.CurrentIndex = manifest.IndexOf(current.ID)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fail(err)
	}

	w, err := archive.CreateHeader(&zip.FileHeader{Name: constant.BundleManifest, Method: zip.Deflate})
	if err != nil {
		return fail(err)
	}
	if _, err := w.Write(data); err != nil {
		return fail(err)
	}

	if err := archive.Close(); err != nil {
		return fail(err)
	}
	if err := file.Close(); err != nil {
		_ = fs.Remove(tmp)
		return report, &ExportError{Path: dest, Err: err}
	}
	if err := fs.Rename(tmp, dest); err != nil {
		_ = fs.Remove(tmp)
		return report, &ExportError{Path: dest, Err: err}
	}

	report.Items = len(manifest.Items)
	return report, nil
}

// packFile stores media without recompression; the formats involved are already compressed.
func packFile(archive *zip.Writer, src, name string) error {
	in, err := filesystem.API().Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	w, err := archive.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return err
	}

	_, err = io.Copy(w, in)
	return err
}

// ImportBundle unpacks the bundle at src into a new unique directory under destRoot and
// returns the snapshot with local entries pointing into it. Entries whose file is missing
// from the archive are skipped with a warning.
func ImportBundle(ctx context.Context, src, destRoot string, logger logrus.FieldLogger) (media.Snapshot, error) {
	fs := filesystem.API()
	dir := filepath.Join(destRoot, "share-"+uuid.NewString())

	fail := func(err error) (media.Snapshot, error) {
		_ = fs.RemoveAll(dir)
		return media.EmptySnapshot(), &ImportError{Path: src, Err: err}
	}

	skipped, err := filesystem.Unzip(ctx, src, dir)
	if err != nil {
		return fail(err)
	}
	for _, name := range skipped {
		logger.Warnf("skipping archive entry %q: outside the bundle", name)
	}

	data, err := fs.ReadFile(filepath.Join(dir, constant.BundleManifest))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fail(ErrManifestMissing)
		}
		return fail(err)
	}

	var manifest media.Snapshot
	if err := json.Unmarshal(data, &manifest); err != nil {
		return fail(fmt.Errorf("parse %s: %w", constant.BundleManifest, err))
	}

	current, hasCurrent := manifest.Current()
	snapshot := media.Snapshot{Items: make([]media.Item, 0, len(manifest.Items)), CurrentIndex: media.NoSelection}

	for _, item := range manifest.Items {
		if !item.Kind.IsLocal() {
			snapshot.Items = append(snapshot.Items, item)
			continue
		}

		local, ok := filesystem.Within(dir, item.URL)
		if !ok || !filesystem.Exists(local) {
			logger.Warnf("skipping %s: not found in bundle", item.URL)
			continue
		}

		snapshot.Items = append(snapshot.Items, item.WithURL(local))
	}

	if len(snapshot.Items) == 0 {
		return fail(ErrNoValidMedia)
	}

	if hasCurrent {
		snapshot.CurrentIndex = snapshot.IndexOf(current.ID)
	}

	return snapshot, nil
}
