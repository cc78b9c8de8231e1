package publish

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeGitHub 模拟 contents API 中用到的两个接口。
type fakeGitHub struct {
	mu       sync.Mutex
	sha      string // 为空表示文件不存在
	status   int    // 非 0 时 GET 直接返回该状态码
	lastPut  map[string]string
	lastAuth string
	lastRef  string
}

func (f *fakeGitHub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/alice/news/contents/index.html", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lastAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")

		switch r.Method {
		case http.MethodGet:
			f.lastRef = r.URL.Query().Get("ref")
			if f.status != 0 {
				w.WriteHeader(f.status)
				fmt.Fprint(w, `{"message":"Server Error"}`)
				return
			}
			if f.sha == "" {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"message":"Not Found"}`)
				return
			}
			fmt.Fprintf(w, `{"type":"file","name":"index.html","path":"index.html","sha":%q,"encoding":"base64","content":""}`, f.sha)
		case http.MethodPut:
			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("解析请求体失败: %v", err)
			}
			f.lastPut = body
			status := http.StatusCreated
			if body["sha"] != "" {
				if body["sha"] != f.sha {
					w.WriteHeader(http.StatusConflict)
					fmt.Fprint(w, `{"message":"sha mismatch"}`)
					return
				}
				status = http.StatusOK
			}
			f.sha = "new-sha"
			w.WriteHeader(status)
			fmt.Fprint(w, `{"content":{"path":"index.html","sha":"new-sha"},"commit":{"sha":"c1"}}`)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return mux
}

func newTestGitHubStore(t *testing.T, fake *fakeGitHub, branch string) *GitHubStore {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	store, err := NewGitHubStore(GitHubOptions{
		Token:  "test-token",
		Owner:  "alice",
		Repo:   "news",
		Branch: branch,
		APIURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("NewGitHubStore 失败: %v", err)
	}
	return store
}

func TestGitHubStoreGetNotFound(t *testing.T) {
	store := newTestGitHubStore(t, &fakeGitHub{}, "")
	if _, err := store.Get(context.Background(), "index.html"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("期望 ErrNotFound，得到 %v", err)
	}
}

func TestGitHubStoreGetServerError(t *testing.T) {
	store := newTestGitHubStore(t, &fakeGitHub{status: http.StatusInternalServerError}, "")
	_, err := store.Get(context.Background(), "index.html")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("500 应返回普通错误，得到 %v", err)
	}
}

func TestGitHubStorePublishCreate(t *testing.T) {
	fake := &fakeGitHub{}
	store := newTestGitHubStore(t, fake, "gh-pages")

	if err := NewPublisher(store).Publish(context.Background(), "index.html", []byte("<html>hi</html>"), publishNow); err != nil {
		t.Fatalf("Publish 失败: %v", err)
	}

	if fake.lastAuth != "Bearer test-token" {
		t.Errorf("Authorization 不匹配: %q", fake.lastAuth)
	}
	if fake.lastRef != "gh-pages" {
		t.Errorf("读取时应带上分支，实际 %q", fake.lastRef)
	}
	if fake.lastPut["sha"] != "" {
		t.Errorf("创建时不应带 sha: %q", fake.lastPut["sha"])
	}
	if fake.lastPut["branch"] != "gh-pages" {
		t.Errorf("分支不匹配: %q", fake.lastPut["branch"])
	}
	content, _ := base64.StdEncoding.DecodeString(fake.lastPut["content"])
	if string(content) != "<html>hi</html>" {
		t.Errorf("内容不匹配: %s", content)
	}
	if fake.lastPut["message"] != "Create news digest - 2026-10-19 06:00:05" {
		t.Errorf("提交信息不匹配: %s", fake.lastPut["message"])
	}
}

func TestGitHubStorePublishUpdate(t *testing.T) {
	fake := &fakeGitHub{sha: "old-sha"}
	store := newTestGitHubStore(t, fake, "")

	if err := NewPublisher(store).Publish(context.Background(), "index.html", []byte("v2"), publishNow); err != nil {
		t.Fatalf("Publish 失败: %v", err)
	}
	if fake.lastPut["sha"] != "old-sha" {
		t.Errorf("更新时应带原 sha，实际 %q", fake.lastPut["sha"])
	}
	if fake.lastPut["message"] != "Update news digest - 2026-10-19 06:00:05" {
		t.Errorf("提交信息不匹配: %s", fake.lastPut["message"])
	}
}

func TestNewGitHubStoreValidation(t *testing.T) {
	if _, err := NewGitHubStore(GitHubOptions{Token: "t", Owner: "alice"}); err == nil {
		t.Fatal("缺少仓库名应返回错误")
	}
}

func TestGitHubStoreFileOptions(t *testing.T) {
	store, err := NewGitHubStore(GitHubOptions{Token: "t", Owner: "alice", Repo: "news", Branch: "gh-pages"})
	if err != nil {
		t.Fatalf("NewGitHubStore 失败: %v", err)
	}

	opts := store.fileOptions([]byte("x"), "msg", "abc")
	if opts.GetMessage() != "msg" || opts.GetSHA() != "abc" || opts.GetBranch() != "gh-pages" {
		t.Errorf("文件选项不匹配: message=%q sha=%q branch=%q", opts.GetMessage(), opts.GetSHA(), opts.GetBranch())
	}

	// 创建时不带 sha
	if opts := store.fileOptions([]byte("x"), "msg", ""); opts.SHA != nil {
		t.Errorf("sha 为空时不应设置，实际 %q", opts.GetSHA())
	}
}
