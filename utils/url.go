package utils

import (
	"net/url"
	"strings"
)

// JoinURL 拼接基础 URL 和存储名称，名称中的每一段都做转义
func JoinURL(baseURL, name string) string {
	segments := strings.Split(strings.TrimLeft(name, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	escaped := strings.Join(segments, "/")

	if baseURL == "" {
		return "/" + escaped
	}
	return strings.TrimRight(baseURL, "/") + "/" + escaped
}
