package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/user-center/internal/http/response"
	"github.com/sandeepkv93/user-center/internal/observability"
	"github.com/sandeepkv93/user-center/internal/service"
)

const (
	msgAvatarUploadFailed = "上传头像失败"
	avatarFormField       = "avatar"
	avatarFormMemory      = 1 << 20
)

type AvatarHandler struct {
	avatarSvc service.AvatarServiceInterface
}

func NewAvatarHandler(avatarSvc service.AvatarServiceInterface) *AvatarHandler {
	return &AvatarHandler{avatarSvc: avatarSvc}
}

// Upload serves POST /api/users/{id}/avatar with a multipart "avatar" file.
func (h *AvatarHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseMultipartForm(avatarFormMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			response.Error(w, r, http.StatusRequestEntityTooLarge, msgAvatarUploadFailed)
			return
		}
		response.Error(w, r, http.StatusBadRequest, msgAvatarUploadFailed)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(avatarFormField)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, msgAvatarUploadFailed)
		return
	}
	defer file.Close()

	updated, found, err := h.avatarSvc.Upload(r.Context(), id, file, header.Size)
	switch {
	case errors.Is(err, service.ErrFileTooBig):
		response.Error(w, r, http.StatusRequestEntityTooLarge, msgAvatarUploadFailed)
		return
	case errors.Is(err, service.ErrInvalidFileType):
		response.Error(w, r, http.StatusBadRequest, msgAvatarUploadFailed)
		return
	case err != nil:
		response.Error(w, r, http.StatusInternalServerError, msgAvatarUploadFailed)
		return
	case !found:
		response.Error(w, r, http.StatusNotFound, msgNotFound)
		return
	}

	observability.EmitAudit(r, observability.AuditInput{
		EventName:  "user.avatar.upload",
		TargetType: "user",
		TargetID:   id,
		Action:     "avatar_upload",
		Outcome:    "success",
		Reason:     "avatar_replaced",
	})
	response.JSON(w, r, http.StatusOK, updated)
}

// Serve streams a stored avatar from GET /avatars/*.
func (h *AvatarHandler) Serve(w http.ResponseWriter, r *http.Request) {
	obj, err := h.avatarSvc.Open(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		if errors.Is(err, service.ErrObjectNotFound) {
			response.Error(w, r, http.StatusNotFound, "not found")
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "failed to load avatar")
		return
	}
	defer obj.Body.Close()

	if obj.ETag != "" {
		etag := strconv.Quote(obj.ETag)
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, obj.Body)
}
