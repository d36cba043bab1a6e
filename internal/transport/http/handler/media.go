package handler

import (
	"context"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chat-realtime/internal/domain"
	s3infra "github.com/go-chat-realtime/internal/infrastructure/s3"
	"github.com/go-chat-realtime/internal/pkg/id"
	"github.com/go-chat-realtime/internal/transport/http/middleware"
)

const maxMediaSize = 10 << 20

type mediaStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// MediaHandler stores image and voice attachments. The returned URL goes into
// the content of an image or audio message.
type MediaHandler struct {
	store mediaStore
	ttl   time.Duration
}

func NewMediaHandler(store mediaStore, urlTTL time.Duration) *MediaHandler {
	return &MediaHandler{store: store, ttl: urlTTL}
}

func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMediaSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "multipart field 'file' is required (max 10MB)")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = s3infra.DetectContentType(header.Filename)
	}
	var kind domain.MessageType
	switch {
	case strings.HasPrefix(contentType, "image/"):
		kind = domain.MessageImage
	case strings.HasPrefix(contentType, "audio/"):
		kind = domain.MessageAudio
	default:
		writeError(w, http.StatusUnsupportedMediaType, "bad_request", "only image and audio uploads are accepted")
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	key := "media/" + userID + "/" + id.New() + strings.ToLower(path.Ext(header.Filename))
	if _, err := h.store.Upload(r.Context(), key, file, contentType); err != nil {
		writeDomainError(w, err)
		return
	}
	url, err := h.store.PresignedURL(r.Context(), key, h.ttl)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MediaEnvelope{Success: true, URL: url, Type: kind})
}
