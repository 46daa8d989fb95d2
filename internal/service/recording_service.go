package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/chat_relay/internal/domain"
	"github.com/immxrtalbeast/chat_relay/internal/repository"
	"github.com/immxrtalbeast/chat_relay/lib/logger/sl"
)

const recordingListLimit = 50

type SaveRecordingInput struct {
	RoomID       uint
	Filename     string
	Base64       string
	DurationSec  int
	StartedBy    string
	Participants []string
}

// RecordingService stores call recordings uploaded by clients on local disk.
type RecordingService struct {
	recordings repository.RecordingRepository
	dir        string
	log        *slog.Logger
}

func NewRecordingService(recordings repository.RecordingRepository, dir string, log *slog.Logger) *RecordingService {
	if log == nil {
		log = slog.Default()
	}
	return &RecordingService{
		recordings: recordings,
		dir:        dir,
		log:        log,
	}
}

// Save writes the decoded blob and records its metadata. A metadata failure
// is logged and does not fail the upload.
func (s *RecordingService) Save(ctx context.Context, in SaveRecordingInput) (*domain.Recording, error) {
	const op = "service.recording.save"
	log := s.log.With(slog.String("op", op), slog.Uint64("room_id", uint64(in.RoomID)))

	name := cleanFilename(in.Filename)
	if in.RoomID == 0 || name == "" || in.Base64 == "" {
		return nil, newError(ErrValidation, MsgInvalidPayload, nil)
	}

	data, err := decodeBlob(in.Base64)
	if err != nil {
		return nil, newError(ErrValidation, MsgInvalidPayload, err)
	}

	stored := uuid.NewString() + "-" + name
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		log.Error("failed to create recordings dir", sl.Err(err))
		return nil, newError(ErrPersistence, MsgRecordingFailed, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, stored), data, 0o644); err != nil {
		log.Error("failed to write recording", sl.Err(err))
		return nil, newError(ErrPersistence, MsgRecordingFailed, err)
	}

	rec := &domain.Recording{
		RoomID:       in.RoomID,
		Filename:     stored,
		Path:         "/api/recordings/file/" + stored,
		DurationSec:  max(in.DurationSec, 0),
		StartedBy:    in.StartedBy,
		Participants: in.Participants,
	}
	if err := s.recordings.Create(ctx, rec); err != nil {
		log.Warn("recording metadata insert failed", slog.String("file", stored), sl.Err(err))
	}

	log.Info("recording saved", slog.String("file", stored), slog.Int("bytes", len(data)))
	return rec, nil
}

func (s *RecordingService) List(ctx context.Context, roomID uint) ([]*domain.Recording, error) {
	recs, err := s.recordings.ListByRoom(ctx, roomID, recordingListLimit)
	if err != nil {
		s.log.Error("failed to list recordings", slog.Uint64("room_id", uint64(roomID)), sl.Err(err))
		return nil, newError(ErrPersistence, MsgRecordingListError, err)
	}
	return recs, nil
}

// Open resolves a stored recording name to its path on disk.
func (s *RecordingService) Open(name string) (string, error) {
	if cleanFilename(name) != name {
		return "", newError(ErrValidation, MsgRecordingNotFound, nil)
	}

	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", newError(ErrValidation, MsgRecordingNotFound, err)
		}
		return "", newError(ErrPersistence, MsgRecordingNotFound, err)
	}
	if info.IsDir() {
		return "", newError(ErrValidation, MsgRecordingNotFound, nil)
	}
	return path, nil
}

func cleanFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return ""
	}
	name = filepath.Base(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// decodeBlob accepts raw base64 or a data URL.
func decodeBlob(blob string) ([]byte, error) {
	if strings.HasPrefix(blob, "data:") {
		idx := strings.Index(blob, ",")
		if idx < 0 {
			return nil, fmt.Errorf("malformed data url")
		}
		blob = blob[idx+1:]
	}
	return base64.StdEncoding.DecodeString(blob)
}
