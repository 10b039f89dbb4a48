package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/user-center/internal/domain"
	"github.com/sandeepkv93/user-center/internal/http/response"
	"github.com/sandeepkv93/user-center/internal/observability"
	"github.com/sandeepkv93/user-center/internal/repository"
	"github.com/sandeepkv93/user-center/internal/service"
)

const (
	msgCreateFailed = "创建用户失败"
	msgUpdateFailed = "更新用户失败"
	msgDeleteFailed = "删除用户失败"
	msgLoadFailed   = "加载用户失败"
	msgNotFound     = "用户不存在"
)

type UserHandler struct {
	userSvc service.UserServiceInterface
}

func NewUserHandler(userSvc service.UserServiceInterface) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// List serves GET /api/users. ?q= switches to search; any paging or filter
// parameter switches to the paginated response.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if wantsPagedList(r) {
		h.listPaged(w, r)
		return
	}

	var (
		users []domain.User
		err   error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		users, err = h.userSvc.Search(r.Context(), q)
	} else {
		users, err = h.userSvc.List(r.Context())
	}
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, msgLoadFailed)
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	response.JSON(w, r, http.StatusOK, users)
}

func (h *UserHandler) listPaged(w http.ResponseWriter, r *http.Request) {
	query, err := parseUserQuery(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	page, err := h.userSvc.Query(r.Context(), query)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidSort) {
			response.Error(w, r, http.StatusBadRequest, err.Error())
			return
		}
		response.Error(w, r, http.StatusInternalServerError, msgLoadFailed)
		return
	}
	if page.Items == nil {
		page.Items = []domain.User{}
	}
	response.JSON(w, r, http.StatusOK, page)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, msgCreateFailed)
		return
	}
	if err := requestValidator.Struct(body); err != nil {
		response.Error(w, r, http.StatusBadRequest, msgCreateFailed)
		return
	}

	created, err := h.userSvc.Create(r.Context(), service.CreateUserInput{
		Name:   body.Name,
		Email:  body.Email,
		Avatar: body.Avatar,
		Status: body.Status,
	})
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, msgCreateFailed)
		return
	}

	observability.EmitAudit(r, observability.AuditInput{
		EventName:  "user.create",
		TargetType: "user",
		TargetID:   created.ID,
		Action:     "create",
		Outcome:    "success",
		Reason:     "user_created",
	})
	response.JSON(w, r, http.StatusCreated, created)
}

func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	user, found, err := h.userSvc.GetByID(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err != nil:
		response.Error(w, r, http.StatusInternalServerError, msgLoadFailed)
	case !found:
		response.Error(w, r, http.StatusNotFound, msgNotFound)
	default:
		response.JSON(w, r, http.StatusOK, user)
	}
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, msgUpdateFailed)
		return
	}
	if err := requestValidator.Struct(body); err != nil {
		response.Error(w, r, http.StatusBadRequest, msgUpdateFailed)
		return
	}

	updated, found, err := h.userSvc.Update(r.Context(), id, service.UpdateUserInput{
		Name:   body.Name,
		Email:  body.Email,
		Avatar: body.Avatar,
		Status: body.Status,
	})
	switch {
	case err != nil:
		response.Error(w, r, http.StatusBadRequest, msgUpdateFailed)
		return
	case !found:
		response.Error(w, r, http.StatusNotFound, msgNotFound)
		return
	}

	observability.EmitAudit(r, observability.AuditInput{
		EventName:  "user.update",
		TargetType: "user",
		TargetID:   id,
		Action:     "update",
		Outcome:    "success",
		Reason:     "user_updated",
	})
	response.JSON(w, r, http.StatusOK, updated)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	found, err := h.userSvc.Delete(r.Context(), id)
	switch {
	case err != nil:
		response.Error(w, r, http.StatusInternalServerError, msgDeleteFailed)
		return
	case !found:
		response.Error(w, r, http.StatusNotFound, msgNotFound)
		return
	}

	observability.EmitAudit(r, observability.AuditInput{
		EventName:  "user.delete",
		TargetType: "user",
		TargetID:   id,
		Action:     "delete",
		Outcome:    "success",
		Reason:     "user_deleted",
	})
	response.NoContent(w)
}
