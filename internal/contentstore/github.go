// Package contentstore persists transformed assets. GitHubStore commits each
// asset into a repository through the contents API; Mirror keeps an optional
// local copy.
package contentstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/mattjoyce/imagerelay/internal/domain"
)

const (
	DefaultAPIBaseURL = "https://api.github.com"
	DefaultRawBaseURL = "https://raw.githubusercontent.com"
	DefaultDirectory  = "uploads"
	DefaultBranch     = "main"

	errorBodyLimit = 4096
)

// GitHubStore uploads assets as new files in a repository. Every asset gets a
// fresh filename, so uploads never update an existing blob.
type GitHubStore struct {
	token      string
	owner      string
	repo       string
	branch     string
	directory  string
	apiBaseURL string
	rawBaseURL string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*GitHubStore)

func WithAPIBaseURL(baseURL string) Option {
	return func(s *GitHubStore) {
		s.apiBaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithRawBaseURL(baseURL string) Option {
	return func(s *GitHubStore) {
		s.rawBaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithBranch(branch string) Option {
	return func(s *GitHubStore) {
		s.branch = strings.TrimSpace(branch)
	}
}

func WithDirectory(dir string) Option {
	return func(s *GitHubStore) {
		s.directory = strings.Trim(strings.TrimSpace(dir), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *GitHubStore) {
		s.httpClient = httpClient
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *GitHubStore) {
		s.logger = logger
	}
}

type putContentRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
}

type putContentResponse struct {
	Content struct {
		Path string `json:"path"`
		SHA  string `json:"sha"`
	} `json:"content"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// NewGitHubStore creates a store for owner/repo.
func NewGitHubStore(token, owner, repo string, opts ...Option) (*GitHubStore, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("contentstore: token must not be empty")
	}
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(repo) == "" {
		return nil, errors.New("contentstore: owner and repo must not be empty")
	}
	s := &GitHubStore{
		token:      token,
		owner:      owner,
		repo:       repo,
		branch:     DefaultBranch,
		directory:  DefaultDirectory,
		apiBaseURL: DefaultAPIBaseURL,
		rawBaseURL: DefaultRawBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.branch == "" {
		s.branch = DefaultBranch
	}
	return s, nil
}

// ObjectPath returns the repository path for filename.
func (s *GitHubStore) ObjectPath(filename string) string {
	if s.directory == "" {
		return filename
	}
	return path.Join(s.directory, filename)
}

// PublicURL returns the raw download URL for a stored object. It is derived
// from configuration alone, never from the API response.
func (s *GitHubStore) PublicURL(branch, objectPath string) string {
	return s.rawBaseURL + "/" + url.PathEscape(s.owner) + "/" + url.PathEscape(s.repo) + "/" + branch + "/" + objectPath
}

func (s *GitHubStore) contentsURL(objectPath string) string {
	return s.apiBaseURL + "/repos/" + url.PathEscape(s.owner) + "/" + url.PathEscape(s.repo) + "/contents/" + objectPath
}

// Store commits asset as a new file. meta.Branch overrides the store's branch
// when set; meta.Author appears in the commit message.
func (s *GitHubStore) Store(ctx context.Context, asset domain.TransformedAsset, meta domain.StoreMetadata) (domain.StoredAssetRef, error) {
	if err := validateFilename(asset.Filename); err != nil {
		return domain.StoredAssetRef{}, domain.NewStageError(domain.StageStore, err)
	}
	if len(asset.Data) == 0 {
		return domain.StoredAssetRef{}, domain.NewStageError(domain.StageStore, errors.New("empty asset"))
	}

	branch := s.branch
	if meta.Branch != "" {
		branch = meta.Branch
	}
	objectPath := s.ObjectPath(asset.Filename)

	body, err := json.Marshal(putContentRequest{
		Message: CommitMessage(meta.Author),
		Content: base64.StdEncoding.EncodeToString(asset.Data),
		Branch:  branch,
	})
	if err != nil {
		return domain.StoredAssetRef{}, domain.NewStageError(domain.StageStore, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.contentsURL(objectPath), bytes.NewReader(body))
	if err != nil {
		return domain.StoredAssetRef{}, domain.NewStageError(domain.StageStore, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	res, err := s.resolvedHTTPClient().Do(req)
	if err != nil {
		return domain.StoredAssetRef{}, domain.NewStageError(domain.StageStore, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, errorBodyLimit))
		return domain.StoredAssetRef{}, domain.NewUpstreamError(domain.StageStore, res.StatusCode, strings.TrimSpace(string(buf)))
	}

	var payload putContentResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&payload); err != nil {
		// The commit exists; only the revision is lost.
		s.logger.Warn("upload committed but response was unreadable; revision unknown",
			"path", objectPath,
			"branch", branch,
			"status", res.StatusCode,
			"error", err,
		)
		payload = putContentResponse{}
	} else if payload.Commit.SHA == "" {
		s.logger.Warn("upload committed without a commit sha in the response",
			"path", objectPath,
			"branch", branch,
			"status", res.StatusCode,
		)
	}

	return domain.StoredAssetRef{
		URL:      s.PublicURL(branch, objectPath),
		Path:     objectPath,
		Revision: payload.Commit.SHA,
	}, nil
}

// CommitMessage returns the commit message recorded for an upload.
func CommitMessage(author string) string {
	if author == "" {
		author = "unknown"
	}
	return "Upload from " + author
}

func (s *GitHubStore) resolvedHTTPClient() *http.Client {
	if s.httpClient != nil {
		return s.httpClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}
