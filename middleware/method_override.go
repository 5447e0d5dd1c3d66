package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	methodOverrideField = "_method"
	maxFormBytes        = 1_048_576
)

var overridableMethods = map[string]bool{
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// MethodOverride превращает POST с полем _method (urlencoded-форма или заголовок
// X-HTTP-Method-Override) в PUT, PATCH или DELETE. Multipart не разбирается.
// Форма длиннее maxFormBytes отклоняется с 413 до вызова обработчика.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			method := r.Header.Get("X-HTTP-Method-Override")
			if method == "" && isForm(r) {
				r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
				if err := r.ParseForm(); err != nil {
					var maxErr *http.MaxBytesError
					if errors.As(err, &maxErr) {
						writeError(w, http.StatusRequestEntityTooLarge,
							fmt.Sprintf("body must not be larger than %d bytes", maxFormBytes))
						return
					}
					writeError(w, http.StatusBadRequest, "invalid form body")
					return
				}
				method = r.PostForm.Get(methodOverrideField)
			}
			method = strings.ToUpper(strings.TrimSpace(method))
			if overridableMethods[method] {
				r.Method = method
			}
		}
		next.ServeHTTP(w, r)
	})
}

func isForm(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
}
