package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sandeepkv93/user-center/internal/domain"
	"github.com/sandeepkv93/user-center/internal/repository"
	"github.com/sandeepkv93/user-center/internal/service"
)

var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("avatar", validAvatar)
	return v
}

// validAvatar accepts an empty value, a stored avatar path, or an absolute
// http(s) URL.
func validAvatar(fl validator.FieldLevel) bool {
	raw := strings.TrimSpace(fl.Field().String())
	if raw == "" || strings.HasPrefix(raw, service.AvatarURLPrefix) {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

type createUserRequest struct {
	Name   string            `json:"name" validate:"required,max=255"`
	Email  string            `json:"email" validate:"required,email,max=255"`
	Avatar string            `json:"avatar" validate:"avatar,max=1024"`
	Status domain.UserStatus `json:"status" validate:"omitempty,oneof=active inactive banned"`
}

type updateUserRequest struct {
	Name   *string            `json:"name" validate:"omitempty,min=1,max=255"`
	Email  *string            `json:"email" validate:"omitempty,email,max=255"`
	Avatar *string            `json:"avatar" validate:"omitempty,avatar,max=1024"`
	Status *domain.UserStatus `json:"status" validate:"omitempty,oneof=active inactive banned"`
}

var pagingParams = []string{"page", "pageSize", "status", "roleId", "orderBy", "order"}

// wantsPagedList reports whether the request asks for the paginated shape.
// A bare list or ?q= search keeps the plain array response.
func wantsPagedList(r *http.Request) bool {
	q := r.URL.Query()
	for _, key := range pagingParams {
		if q.Has(key) {
			return true
		}
	}
	return false
}

func parsePageRequest(r *http.Request) (repository.PageRequest, error) {
	page := repository.DefaultPage
	pageSize := repository.DefaultPageSize
	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return repository.PageRequest{}, errors.New("page must be a positive integer")
		}
		page = v
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("pageSize")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return repository.PageRequest{}, errors.New("pageSize must be a positive integer")
		}
		if v > repository.MaxPageSize {
			return repository.PageRequest{}, fmt.Errorf("pageSize must be <= %d", repository.MaxPageSize)
		}
		pageSize = v
	}
	return repository.PageRequest{Page: page, PageSize: pageSize}, nil
}

func parseUserQuery(r *http.Request) (repository.UserQuery, error) {
	pageReq, err := parsePageRequest(r)
	if err != nil {
		return repository.UserQuery{}, err
	}
	values := r.URL.Query()
	q := repository.UserQuery{
		PageRequest: pageReq,
		Search:      strings.TrimSpace(values.Get("q")),
		OrderBy:     strings.TrimSpace(values.Get("orderBy")),
		Order:       strings.ToLower(strings.TrimSpace(values.Get("order"))),
	}
	if raw := strings.TrimSpace(values.Get("status")); raw != "" {
		status := domain.UserStatus(strings.ToLower(raw))
		if !status.Valid() {
			return repository.UserQuery{}, errors.New("status must be one of active, inactive, banned")
		}
		q.Status = status
	}
	if raw := strings.TrimSpace(values.Get("roleId")); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || v == 0 {
			return repository.UserQuery{}, errors.New("roleId must be a positive integer")
		}
		q.RoleID = uint(v)
	}
	return q, nil
}
