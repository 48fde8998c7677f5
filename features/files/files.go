package files

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"lanhub/domain"
	"lanhub/domain/event"
	"lanhub/errors"
	"lanhub/eventbus"
	"lanhub/repositories"
)

// DefaultMaxSize caps uploads at 50 MiB, matching what a classroom LAN
// share realistically needs.
const DefaultMaxSize = 50 << 20

// Feature stores file blobs on disk under root/<roomId>/ and keeps their
// metadata in the room aggregate. The metadata record is written before
// file_uploaded is emitted, so a poller reacting to the event can always
// resolve the file.
type Feature struct {
	rooms   repositories.IRoomRepository
	bus     eventbus.IEventBus
	log     *slog.Logger
	root    string
	maxSize int64
}

func NewFeature(rooms repositories.IRoomRepository, bus eventbus.IEventBus, log *slog.Logger, root string, maxSize int64) *Feature {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Feature{rooms: rooms, bus: bus, log: log, root: root, maxSize: maxSize}
}

// Upload streams the reader to disk, sniffs the content type, and appends a
// file record to the room. The stored name carries the upload timestamp and
// the record's unique ID, so two uploads of the same filename never collide
// on disk even within the same second.
func (f *Feature) Upload(roomID, username, filename string, r io.Reader) (domain.FileRecord, error) {
	if filename == "" {
		return domain.FileRecord{}, fmt.Errorf("%w: filename is required", errors.ErrValidation)
	}
	found, err := f.rooms.Exists(roomID)
	if err != nil {
		return domain.FileRecord{}, err
	}
	if !found {
		return domain.FileRecord{}, errors.ErrRoomNotFound
	}

	fileID := uuid.New().String()
	original := filepath.Base(filename)
	ext := filepath.Ext(original)
	base := strings.TrimSuffix(original, ext)
	storedName := fmt.Sprintf("%s_%d_%s%s", base, time.Now().Unix(), fileID, ext)

	dir := filepath.Join(f.root, roomID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.FileRecord{}, fmt.Errorf("creating blob dir: %w", err)
	}
	path := filepath.Join(dir, storedName)

	size, err := f.writeBlob(path, r)
	if err != nil {
		return domain.FileRecord{}, err
	}

	contentType := ""
	if mtype, err := mimetype.DetectFile(path); err == nil {
		contentType = mtype.String()
	}

	record := domain.FileRecord{
		ID:           fileID,
		OriginalName: original,
		StoredName:   storedName,
		Size:         size,
		ContentType:  contentType,
		UploadedBy:   username,
		UploadedAt:   time.Now().Unix(),
	}

	err = f.rooms.Mutate(roomID, func(room *domain.Room) error {
		room.Files = append(room.Files, record)
		return nil
	})
	if err != nil {
		// Room vanished between the existence check and the record write.
		_ = os.Remove(path)
		return domain.FileRecord{}, err
	}

	if _, err := f.bus.Emit(roomID, event.TypeFileUploaded, record); err != nil {
		return domain.FileRecord{}, err
	}

	f.log.Info("file uploaded", "room", roomID, "file", record.ID, "name", original, "size", size)
	return record, nil
}

func (f *Feature) writeBlob(path string, r io.Reader) (int64, error) {
	dst, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating blob: %w", err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, io.LimitReader(r, f.maxSize+1))
	if err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("writing blob: %w", err)
	}
	if size > f.maxSize {
		_ = os.Remove(path)
		return 0, errors.ErrFileTooLarge
	}
	return size, nil
}

func (f *Feature) List(roomID string) ([]domain.FileRecord, error) {
	room, err := f.rooms.Get(roomID)
	if err != nil {
		return nil, err
	}
	return room.Files, nil
}

// Open resolves a file record and opens its blob for reading. The caller
// owns the returned ReadCloser.
func (f *Feature) Open(roomID, fileID string) (domain.FileRecord, io.ReadCloser, error) {
	room, err := f.rooms.Get(roomID)
	if err != nil {
		return domain.FileRecord{}, nil, err
	}

	record, found := lo.Find(room.Files, func(fr domain.FileRecord) bool {
		return fr.ID == fileID
	})
	if !found {
		return domain.FileRecord{}, nil, errors.ErrFileNotFound
	}

	blob, err := os.Open(filepath.Join(f.root, roomID, record.StoredName))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.FileRecord{}, nil, errors.ErrFileNotFound
		}
		return domain.FileRecord{}, nil, err
	}
	return record, blob, nil
}

// Delete removes the record from the room, the blob from disk, and
// broadcasts file_deleted.
func (f *Feature) Delete(roomID, fileID, username string) error {
	var removed domain.FileRecord
	err := f.rooms.Mutate(roomID, func(room *domain.Room) error {
		record, found := lo.Find(room.Files, func(fr domain.FileRecord) bool {
			return fr.ID == fileID
		})
		if !found {
			return errors.ErrFileNotFound
		}
		removed = record
		room.Files = lo.Filter(room.Files, func(fr domain.FileRecord, _ int) bool {
			return fr.ID != fileID
		})
		return nil
	})
	if err != nil {
		return err
	}

	blob := filepath.Join(f.root, roomID, removed.StoredName)
	if err := os.Remove(blob); err != nil && !os.IsNotExist(err) {
		f.log.Error("removing blob failed", "room", roomID, "file", fileID, "error", err)
	}

	_, err = f.bus.Emit(roomID, event.TypeFileDeleted, map[string]any{
		"fileId":    fileID,
		"fileName":  removed.OriginalName,
		"deletedBy": username,
	})
	return err
}
