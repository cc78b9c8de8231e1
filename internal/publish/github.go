package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v66/github"
)

// GitHubOptions GitHub 仓库参数。
type GitHubOptions struct {
	Token  string
	Owner  string
	Repo   string
	Branch string // 为空则使用默认分支
	// APIURL 完整的 API 根地址，例如 https://ghe.example.com/api/v3/。为空使用 api.github.com。
	APIURL string
}

// GitHubStore 基于 GitHub contents API 的 Store。
type GitHubStore struct {
	client *github.Client
	owner  string
	repo   string
	branch string
}

// NewGitHubStore 创建 GitHubStore。token 原样透传给 API。
func NewGitHubStore(opts GitHubOptions) (*GitHubStore, error) {
	if opts.Owner == "" || opts.Repo == "" {
		return nil, errors.New("GitHub 仓库 owner 和 name 不能为空")
	}

	client := github.NewClient(nil).WithAuthToken(opts.Token)
	if opts.APIURL != "" {
		base := opts.APIURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("无效的 GitHub API 地址 %q: %w", opts.APIURL, err)
		}
		client.BaseURL = u
	}

	return &GitHubStore{
		client: client,
		owner:  opts.Owner,
		repo:   opts.Repo,
		branch: opts.Branch,
	}, nil
}

// Get 读取文件元数据。
func (s *GitHubStore) Get(ctx context.Context, path string) (*File, error) {
	var opts *github.RepositoryContentGetOptions
	if s.branch != "" {
		opts = &github.RepositoryContentGetOptions{Ref: s.branch}
	}

	file, _, resp, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, path, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("%s 是目录而不是文件", path)
	}
	return &File{Path: file.GetPath(), SHA: file.GetSHA()}, nil
}

// Create 创建文件。
func (s *GitHubStore) Create(ctx context.Context, path string, content []byte, message string) error {
	_, _, err := s.client.Repositories.CreateFile(ctx, s.owner, s.repo, path, s.fileOptions(content, message, ""))
	return err
}

// Update 以 sha 为前置条件更新文件。
func (s *GitHubStore) Update(ctx context.Context, path string, content []byte, message, sha string) error {
	_, _, err := s.client.Repositories.UpdateFile(ctx, s.owner, s.repo, path, s.fileOptions(content, message, sha))
	return err
}

func (s *GitHubStore) fileOptions(content []byte, message, sha string) *github.RepositoryContentFileOptions {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
	}
	if sha != "" {
		opts.SHA = github.String(sha)
	}
	if s.branch != "" {
		opts.Branch = github.String(s.branch)
	}
	return opts
}
