package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tastebook/tastebook/internal/platform/httpx"
	"github.com/tastebook/tastebook/internal/rbac"
	"github.com/tastebook/tastebook/internal/users"
)

type stubPromoteService struct {
	result users.PromoteResult
	err    error

	gotIdentifier string
	gotRole       string
	gotMode       rbac.AssignMode
}

func (s *stubPromoteService) Promote(_ context.Context, identifier, roleName string, mode rbac.AssignMode) (users.PromoteResult, error) {
	s.gotIdentifier = identifier
	s.gotRole = roleName
	s.gotMode = mode
	return s.result, s.err
}

func TestPromoteCommandSuccess(t *testing.T) {
	svc := &stubPromoteService{result: users.PromoteResult{
		User:    users.User{Username: "alice", Email: "alice@example.com"},
		Before:  []rbac.Role{rbac.RoleStudent},
		After:   []rbac.Role{rbac.RoleModerator, rbac.RoleStudent},
		Changed: true,
	}}
	cli := NewPromoteCLI(svc)

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	code := cli.Run(context.Background(), PromoteOptions{
		Identifier: "alice",
		Role:       "moderator",
		Stdout:     stdout,
		Stderr:     stderr,
	})

	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "alice", svc.gotIdentifier)
	assert.Equal(t, rbac.AssignAdd, svc.gotMode)
	assert.Contains(t, stdout.String(), "[STUDENT] -> [MODERATOR, STUDENT]")
}

func TestPromoteCommandReplaceFlag(t *testing.T) {
	svc := &stubPromoteService{result: users.PromoteResult{
		User:    users.User{Username: "alice"},
		After:   []rbac.Role{rbac.RoleAdmin},
		Changed: true,
	}}
	cli := NewPromoteCLI(svc)

	code := cli.Run(context.Background(), PromoteOptions{
		Identifier: "alice",
		Role:       "ADMIN",
		Replace:    true,
		Stdout:     new(bytes.Buffer),
		Stderr:     new(bytes.Buffer),
	})

	require.Equal(t, 0, code)
	assert.Equal(t, rbac.AssignReplace, svc.gotMode)
}

func TestPromoteCommandNoOp(t *testing.T) {
	svc := &stubPromoteService{result: users.PromoteResult{
		User:   users.User{Username: "alice"},
		Before: []rbac.Role{rbac.RoleModerator},
		After:  []rbac.Role{rbac.RoleModerator},
	}}
	cli := NewPromoteCLI(svc)

	stdout := new(bytes.Buffer)
	code := cli.Run(context.Background(), PromoteOptions{
		Identifier: "alice",
		Role:       "moderator",
		Stdout:     stdout,
		Stderr:     new(bytes.Buffer),
	})

	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "already holds MODERATOR")
}

func TestPromoteCommandJSONOutput(t *testing.T) {
	svc := &stubPromoteService{result: users.PromoteResult{
		User:    users.User{Username: "alice", Email: "alice@example.com"},
		Before:  nil,
		After:   []rbac.Role{rbac.RoleStudent},
		Changed: true,
	}}
	cli := NewPromoteCLI(svc)

	stdout := new(bytes.Buffer)
	code := cli.Run(context.Background(), PromoteOptions{
		Identifier: "alice",
		Role:       "student",
		JSONOutput: true,
		Stdout:     stdout,
		Stderr:     new(bytes.Buffer),
	})

	require.Equal(t, 0, code)
	var report struct {
		Username string   `json:"username"`
		After    []string `json:"after"`
		Changed  bool     `json:"changed"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.Equal(t, "alice", report.Username)
	assert.Equal(t, []string{"STUDENT"}, report.After)
	assert.True(t, report.Changed)
}

func TestPromoteCommandErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"unknown user", fmt.Errorf("%w: no user matches", httpx.ErrNotFound), "no user matches"},
		{"unknown role", fmt.Errorf("%w: unknown role", httpx.ErrValidation), "unknown role"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cli := NewPromoteCLI(&stubPromoteService{err: tc.err})
			stderr := new(bytes.Buffer)
			code := cli.Run(context.Background(), PromoteOptions{
				Identifier: "ghost",
				Role:       "whatever",
				Stdout:     new(bytes.Buffer),
				Stderr:     stderr,
			})
			require.Equal(t, 1, code)
			assert.True(t, strings.Contains(stderr.String(), tc.want), stderr.String())
		})
	}
}
