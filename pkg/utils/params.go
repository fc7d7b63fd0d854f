package utils

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// URLParam 返回解码后的路径参数。chi 在 RawPath 存在时按转义后的路径匹配，
// 此时参数仍是转义形式。
func URLParam(r *http.Request, key string) (string, error) {
	value := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return value, nil
	}
	decoded, err := url.PathUnescape(value)
	if err != nil {
		return "", fmt.Errorf("invalid %s path parameter: %w", key, err)
	}
	return decoded, nil
}
