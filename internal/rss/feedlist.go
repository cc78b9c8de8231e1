package rss

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/iabetor/gazette/internal/logger"
)

// LoadFeedList 读取订阅源列表文件。
func LoadFeedList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开订阅源列表 %s 失败: %w", path, err)
	}
	defer f.Close()

	urls, err := ReadFeedList(f)
	if err != nil {
		return nil, fmt.Errorf("读取订阅源列表 %s 失败: %w", path, err)
	}
	return urls, nil
}

// ReadFeedList 按行读取 URL，忽略空行，重复的 URL 只保留第一次出现。
func ReadFeedList(r io.Reader) ([]string, error) {
	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if seen[line] {
			logger.Warnf("[rss] 忽略重复的订阅源: %s", line)
			continue
		}
		seen[line] = true
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return urls, nil
}
