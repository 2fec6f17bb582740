package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gh "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/mosaicpm/mosaic/internal/bootstrap/config"
	"github.com/mosaicpm/mosaic/internal/errs"
	"github.com/mosaicpm/mosaic/internal/ports"
)

// DiffFetcher retrieves diff-flavored content from the GitHub API. Every call
// runs under its own timeout, and a semaphore bounds in-flight requests so a
// large push cannot trample the provider's rate limits.
type DiffFetcher struct {
	client  *gh.Client
	timeout time.Duration
	sem     chan struct{}
}

var _ ports.DiffFetcher = (*DiffFetcher)(nil)

func NewDiffFetcher(ctx context.Context, cfg config.GitHubConfig) (*DiffFetcher, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	httpClient, err := buildHTTPClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client := gh.NewClient(httpClient)
	if cfg.BaseURL != "" {
		client, err = client.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, errs.Wrap(err, "configure enterprise base url")
		}
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxInFlight := cfg.MaxInFlightDiffs
	if maxInFlight <= 0 {
		maxInFlight = 4
	}

	return &DiffFetcher{
		client:  client,
		timeout: timeout,
		sem:     make(chan struct{}, maxInFlight),
	}, nil
}

func buildHTTPClient(ctx context.Context, cfg config.GitHubConfig) (*http.Client, error) {
	switch strings.ToLower(cfg.Auth) {
	case "", "none":
		return nil, nil
	case "token":
		source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		return oauth2.NewClient(ctx, source), nil
	case "app":
		transport, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, cfg.AppID, cfg.InstallationID, cfg.PrivateKeyPath)
		if err != nil {
			return nil, errs.Wrap(err, "load github app key")
		}
		return &http.Client{Transport: transport}, nil
	default:
		return nil, fmt.Errorf("unsupported github auth %q", cfg.Auth)
	}
}

func (f *DiffFetcher) CommitDiff(ctx context.Context, repoFullName string, sha string) (string, error) {
	owner, repo, err := splitFullName(repoFullName)
	if err != nil {
		return "", err
	}

	if err := f.acquire(ctx); err != nil {
		return "", err
	}
	defer f.release()

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	diff, _, err := f.client.Repositories.GetCommitRaw(callCtx, owner, repo, sha, gh.RawOptions{Type: gh.Diff})
	if err != nil {
		return "", errs.Wrapf(err, "fetch commit diff %s@%s", repoFullName, sha)
	}
	return diff, nil
}

func (f *DiffFetcher) PullRequestDiff(ctx context.Context, repoFullName string, number int) (string, error) {
	owner, repo, err := splitFullName(repoFullName)
	if err != nil {
		return "", err
	}

	if err := f.acquire(ctx); err != nil {
		return "", err
	}
	defer f.release()

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	diff, _, err := f.client.PullRequests.GetRaw(callCtx, owner, repo, number, gh.RawOptions{Type: gh.Diff})
	if err != nil {
		return "", errs.Wrapf(err, "fetch pull request diff %s#%d", repoFullName, number)
	}
	return diff, nil
}

func (f *DiffFetcher) acquire(ctx context.Context) error {
	select {
	case f.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errs.Wrap(ctx.Err(), "wait for diff slot")
	}
}

func (f *DiffFetcher) release() {
	<-f.sem
}

func splitFullName(fullName string) (string, string, error) {
	parts := strings.SplitN(strings.TrimSpace(fullName), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository full name %q", fullName)
	}
	return parts[0], parts[1], nil
}
