// Package github implements backends.IssueTracker over the GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	gh "github.com/google/go-github/v74/github"

	"aura/internal/backends"
	"aura/internal/config"
	auraerrors "aura/internal/errors"
	"aura/internal/slogutil"
)

var (
	refPattern = regexp.MustCompile(`^([\w.-]+)/([\w.-]+)#(\d+)$`)
	urlPattern = regexp.MustCompile(`^https?://[^/]+/([\w.-]+)/([\w.-]+)/(?:issues|pull)/(\d+)/?$`)
)

// Tracker fetches issues from one GitHub (or GitHub Enterprise) host.
type Tracker struct {
	client     *gh.Client
	repository string
	logger     *slog.Logger
}

// New creates a tracker. The token is read from the variable named by
// cfg.TokenEnv; without one only public repositories are reachable.
func New(cfg config.IssuesConfig, httpClient *http.Client, logger *slog.Logger) (*Tracker, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	client := gh.NewClient(httpClient)
	if cfg.TokenEnv != "" {
		if token := os.Getenv(cfg.TokenEnv); token != "" {
			client = client.WithAuthToken(token)
		}
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, auraerrors.NewInvalidArgumentError("issues.baseURL", err.Error())
		}
		client.BaseURL = u
	}
	return &Tracker{client: client, repository: cfg.Repository, logger: logger}, nil
}

// ParseRef splits "owner/repo#12", an issue URL, or "#12" (resolved
// against defaultRepo) into its parts.
func ParseRef(ref, defaultRepo string) (owner, repo string, number int, err error) {
	ref = strings.TrimSpace(ref)
	if m := refPattern.FindStringSubmatch(ref); m != nil {
		n, _ := strconv.Atoi(m[3])
		return m[1], m[2], n, nil
	}
	if m := urlPattern.FindStringSubmatch(ref); m != nil {
		n, _ := strconv.Atoi(m[3])
		return m[1], m[2], n, nil
	}
	if n, convErr := strconv.Atoi(strings.TrimPrefix(ref, "#")); convErr == nil && n > 0 {
		o, r, ok := strings.Cut(defaultRepo, "/")
		if !ok || o == "" || r == "" {
			return "", "", 0, auraerrors.NewInvalidArgumentError("issueRef",
				"a bare issue number needs issues.repository in .aura/config.json")
		}
		return o, r, n, nil
	}
	return "", "", 0, auraerrors.NewInvalidArgumentError("issueRef", "expected owner/repo#N, an issue URL or #N")
}

// GetIssue implements backends.IssueTracker.
func (t *Tracker) GetIssue(ctx context.Context, ref string) (*backends.Issue, error) {
	owner, repo, number, err := ParseRef(ref, t.repository)
	if err != nil {
		return nil, err
	}
	canonical := fmt.Sprintf("%s/%s#%d", owner, repo, number)

	t.logger.Debug("Fetching issue", "ref", canonical)
	issue, _, err := t.client.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var respErr *gh.ErrorResponse
		if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound {
			return nil, auraerrors.NewNotFoundError("Issue", canonical)
		}
		return nil, auraerrors.NewOperationError("fetch issue "+canonical, err)
	}

	out := &backends.Issue{
		Ref:   canonical,
		Title: issue.GetTitle(),
		Body:  issue.GetBody(),
		URL:   issue.GetHTMLURL(),
	}
	for _, l := range issue.Labels {
		out.Labels = append(out.Labels, l.GetName())
	}
	return out, nil
}
