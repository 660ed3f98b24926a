package filesystems

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// NewFileSystem creates a filesystem implementation based on the given URI
// Supports:
// - plain local paths
// - file:///path/to/local/dir
// - github://owner/repo[/tree/branch[/subpath]]
// - git://github.com/owner/repo[#ref]
func NewFileSystem(ctx context.Context, uri string) (FileSystem, error) {
	// Handle local paths without scheme
	if !strings.Contains(uri, "://") {
		if _, err := filepath.Abs(uri); err != nil {
			return nil, fmt.Errorf("failed to get absolute path for %s: %w", uri, err)
		}
		return NewLocalFS(), nil
	}

	parsedURL, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid URI %s: %w", uri, err)
	}

	switch parsedURL.Scheme {
	case "file":
		return NewLocalFS(), nil

	case "github":
		src, err := parseGitHubURL(parsedURL)
		if err != nil {
			return nil, err
		}
		return NewGitHubFSWithPath(ctx, src.owner, src.repo, src.ref, src.subpath, os.Getenv("GITHUB_TOKEN")), nil

	case "git":
		remote, ref, err := parseGitURL(parsedURL)
		if err != nil {
			return nil, err
		}
		gitFS, err := NewGitFS(ctx, remote, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to create git filesystem: %w", err)
		}
		return gitFS, nil

	default:
		return nil, fmt.Errorf("unsupported scheme: %s", parsedURL.Scheme)
	}
}

type githubSource struct {
	owner   string
	repo    string
	ref     string
	subpath string
}

// parseGitHubURL parses github://owner/repo/tree/branch URLs
func parseGitHubURL(u *url.URL) (githubSource, error) {
	// The host should be the owner for github:// URLs
	path := strings.Trim(u.Path, "/")
	parts := strings.Split(path, "/")

	if u.Host == "" || len(parts) < 1 || parts[0] == "" {
		return githubSource{}, fmt.Errorf("invalid GitHub URL format, expected: github://owner/repo[/tree/branch]")
	}

	src := githubSource{owner: u.Host, repo: parts[0]}

	// Check if tree/branch is specified
	if len(parts) >= 3 && parts[1] == "tree" {
		src.ref = parts[2]
		if len(parts) > 3 {
			src.subpath = strings.Join(parts[3:], "/")
		}
	}

	return src, nil
}

// parseGitURL parses git://owner/repo or git://github.com/owner/repo URLs
// into an https remote and an optional ref taken from the fragment
func parseGitURL(u *url.URL) (string, string, error) {
	var gitURL string

	switch {
	case u.Host != "" && u.Host != "github.com" && !strings.Contains(u.Host, ".") && strings.Count(strings.Trim(u.Path, "/"), "/") == 0:
		// git://owner/repo shorthand, the host is the owner
		gitURL = fmt.Sprintf("https://github.com/%s/%s", u.Host, strings.Trim(u.Path, "/"))

	case u.Host == "":
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) < 2 {
			return "", "", fmt.Errorf("invalid git URL format, expected: git://owner/repo or git://github.com/owner/repo")
		}
		gitURL = fmt.Sprintf("https://github.com/%s/%s", parts[0], parts[1])

	default:
		// github.com and other git hosting services
		gitURL = fmt.Sprintf("https://%s%s", u.Host, u.Path)
	}

	return gitURL, u.Fragment, nil
}

// RootPath returns the path the walk should start from for the given URI.
// Remote filesystems are rooted at their own top level.
func RootPath(uri string) string {
	if !strings.Contains(uri, "://") {
		return uri
	}

	parsedURL, err := url.Parse(uri)
	if err != nil {
		return uri
	}

	switch parsedURL.Scheme {
	case "file":
		return parsedURL.Path
	case "github", "git":
		return "."
	default:
		return uri
	}
}
