package hotfolder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"despatch/internal/fileutil"
	"despatch/internal/logging"
	"despatch/internal/services"
)

// Error codes reported by the hot-folder transport.
const (
	CodeFolderMissing = "HOTFOLDER_MISSING"
	CodeCopyFailed    = "HOTFOLDER_COPY"
	CodePublish       = "HOTFOLDER_PUBLISH"
	CodeCanceled      = "HOTFOLDER_CANCELED"
)

const partSuffix = ".part"

// Transport copies files into Dir.
type Transport struct {
	Dir    string
	logger *slog.Logger
}

// New constructs a hot-folder transport rooted at dir.
func New(dir string, logger *slog.Logger) *Transport {
	return &Transport{Dir: dir, logger: logging.NewComponentLogger(logger, "hotfolder")}
}

// Deliver copies path into the hot folder under its base name.
func (t *Transport) Deliver(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return &services.TransportError{
			Code:    CodeCanceled,
			Message: "delivery canceled before copy",
			Remedy:  "Resubmit the batch",
			Path:    path,
			Err:     err,
		}
	}

	info, err := os.Stat(t.Dir)
	if err != nil || !info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is not a directory", t.Dir)
		}
		return &services.TransportError{
			Code:    CodeFolderMissing,
			Message: fmt.Sprintf("hot folder %s is unavailable", t.Dir),
			Remedy:  "Check the network share is mounted and try again",
			Path:    path,
			Err:     err,
		}
	}

	name := filepath.Base(path)
	target := filepath.Join(t.Dir, name)
	part := target + partSuffix

	if err := fileutil.CopyFileVerified(path, part); err != nil {
		_ = os.Remove(part)
		return &services.TransportError{
			Code:    CodeCopyFailed,
			Message: fmt.Sprintf("copy %s into hot folder failed", name),
			Remedy:  "Check free space and permissions on the hot folder",
			Path:    path,
			Err:     err,
		}
	}
	if err := os.Rename(part, target); err != nil {
		_ = os.Remove(part)
		if errors.Is(err, fs.ErrPermission) {
			err = fmt.Errorf("publish denied: %w", err)
		}
		return &services.TransportError{
			Code:    CodePublish,
			Message: fmt.Sprintf("publish %s in hot folder failed", name),
			Remedy:  "Check permissions on the hot folder",
			Path:    path,
			Err:     err,
		}
	}

	t.logger.Info("file delivered",
		logging.String("file", name),
		logging.String("hot_folder", t.Dir),
		logging.String(logging.FieldEventType, "file_delivered"),
	)
	return nil
}
