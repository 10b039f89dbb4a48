//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/sandeepkv93/user-center/internal/domain"
	"github.com/sandeepkv93/user-center/internal/repository"
)

func TestUserListPaginationFilterAndSort(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})
	for i := 0; i < 5; i++ {
		u := createUser(t, srv.URL, fmt.Sprintf("user-%02d", i), fmt.Sprintf("paged-%02d@example.com", i))
		if i%2 == 0 {
			if resp, raw := doJSON(t, http.MethodPatch, srv.URL+"/api/users/"+u.ID, map[string]string{"status": "inactive"}); resp.StatusCode != http.StatusOK {
				t.Fatalf("deactivate %s: status=%d body=%s", u.ID, resp.StatusCode, raw)
			}
		}
	}

	page := listPage(t, srv.URL+"/api/users?page=1&pageSize=2&orderBy=name&order=asc")
	if page.Total != 5 || page.Page != 1 || page.PageSize != 2 || page.TotalPages != 3 {
		t.Fatalf("unexpected page metadata: %+v", page)
	}
	if len(page.Items) != 2 || page.Items[0].Name != "user-00" || page.Items[1].Name != "user-01" {
		t.Fatalf("unexpected first page: %+v", page.Items)
	}

	last := listPage(t, srv.URL+"/api/users?page=3&pageSize=2&orderBy=name&order=asc")
	if len(last.Items) != 1 || last.Items[0].Name != "user-04" {
		t.Fatalf("unexpected last page: %+v", last.Items)
	}

	beyond := listPage(t, srv.URL+"/api/users?page=9&pageSize=2")
	if beyond.Items == nil || len(beyond.Items) != 0 || beyond.Total != 5 {
		t.Fatalf("expected empty items past the end, got %+v", beyond)
	}

	inactive := listPage(t, srv.URL+"/api/users?status=inactive&orderBy=email&order=desc")
	if inactive.Total != 3 || len(inactive.Items) != 3 || inactive.Items[0].Email != "paged-04@example.com" {
		t.Fatalf("unexpected inactive filter result: %+v", inactive)
	}
	for _, u := range inactive.Items {
		if u.Status != domain.UserStatusInactive {
			t.Fatalf("status filter leaked %+v", u)
		}
	}
}

func TestUserListPaginationRejectsBadParameters(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})
	for _, query := range []string{
		"page=0",
		"pageSize=abc",
		fmt.Sprintf("pageSize=%d", repository.MaxPageSize+1),
		"status=deleted",
		"roleId=-1",
		"orderBy=password",
		"orderBy=name&order=sideways",
	} {
		resp, raw := doJSON(t, http.MethodGet, srv.URL+"/api/users?"+query, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d body=%s", query, resp.StatusCode, raw)
		}
	}
}

func TestUserListWithoutPagingParamsKeepsArrayShape(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})
	createUser(t, srv.URL, "plain", "plain@example.com")

	resp, raw := doJSON(t, http.MethodGet, srv.URL+"/api/users", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status=%d body=%s", resp.StatusCode, raw)
	}
	var users []domain.User
	if err := json.Unmarshal(raw, &users); err != nil || len(users) != 1 {
		t.Fatalf("expected a plain array with one user, err=%v body=%s", err, raw)
	}
}

func listPage(t *testing.T, url string) repository.PageResult[domain.User] {
	t.Helper()
	resp, raw := doJSON(t, http.MethodGet, url, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status=%d body=%s", url, resp.StatusCode, raw)
	}
	var page repository.PageResult[domain.User]
	if err := json.Unmarshal(raw, &page); err != nil {
		t.Fatalf("decode page: %v body=%s", err, raw)
	}
	return page
}
