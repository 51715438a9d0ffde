package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tastebook/tastebook/internal/platform/httpx"
	"github.com/tastebook/tastebook/internal/rbac"
	"github.com/tastebook/tastebook/internal/users"
)

// PromoteService is the slice of the users service the CLI needs.
type PromoteService interface {
	Promote(ctx context.Context, identifier, roleName string, mode rbac.AssignMode) (users.PromoteResult, error)
}

// PromoteOptions carries the parsed command arguments.
type PromoteOptions struct {
	// Identifier is a username or email.
	Identifier string
	Role       string
	// Replace discards the stored role set instead of adding to it.
	Replace    bool
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// PromoteCLI grants roles from the command line, the operational path
// for making someone a student, moderator or admin.
type PromoteCLI struct {
	svc PromoteService
}

// NewPromoteCLI constructs the helper.
func NewPromoteCLI(svc PromoteService) *PromoteCLI {
	return &PromoteCLI{svc: svc}
}

type promoteReport struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Before   []string `json:"before"`
	After    []string `json:"after"`
	Changed  bool     `json:"changed"`
}

// Run executes the promotion and reports the outcome. The return value
// is the process exit code.
func (c *PromoteCLI) Run(ctx context.Context, opts PromoteOptions) int {
	if opts.Stdout == nil || opts.Stderr == nil {
		return 1
	}

	mode := rbac.AssignAdd
	if opts.Replace {
		mode = rbac.AssignReplace
	}

	result, err := c.svc.Promote(ctx, opts.Identifier, opts.Role, mode)
	if err != nil {
		switch {
		case errors.Is(err, httpx.ErrNotFound):
			fmt.Fprintf(opts.Stderr, "no user matches %q\n", opts.Identifier)
		case errors.Is(err, httpx.ErrValidation):
			fmt.Fprintf(opts.Stderr, "%v\n", err)
		default:
			fmt.Fprintf(opts.Stderr, "promote failed: %v\n", err)
		}
		return 1
	}

	report := promoteReport{
		Username: result.User.Username,
		Email:    result.User.Email,
		Before:   rbac.RoleNames(result.Before),
		After:    rbac.RoleNames(result.After),
		Changed:  result.Changed,
	}

	if opts.JSONOutput {
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(opts.Stderr, "encode report: %v\n", err)
			return 1
		}
		return 0
	}

	if !report.Changed {
		fmt.Fprintf(opts.Stdout, "%s already holds %s; stored roles unchanged: [%s]\n",
			report.Username, strings.ToUpper(strings.TrimSpace(opts.Role)), strings.Join(report.After, ", "))
		return 0
	}
	fmt.Fprintf(opts.Stdout, "%s (%s) roles: [%s] -> [%s]\n",
		report.Username, report.Email, strings.Join(report.Before, ", "), strings.Join(report.After, ", "))
	return 0
}
