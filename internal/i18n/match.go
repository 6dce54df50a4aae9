package i18n

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var matcher = func() language.Matcher {
	tags := make([]language.Tag, len(Supported))
	for i, l := range Supported {
		tags[i] = l.Tag
	}
	return language.NewMatcher(tags)
}()

// Match picks the best supported locale for an Accept-Language header or a
// bare language tag. Unmatched input yields the default locale.
func Match(accept string) string {
	accept = strings.TrimSpace(accept)
	if accept == "" {
		return DefaultLocale
	}
	if _, ok := Lookup(accept); ok {
		return accept
	}
	_, idx := language.MatchStrings(matcher, strings.ReplaceAll(accept, "_", "-"))
	return Supported[idx].Code
}

// EnglishName returns the English display name of a supported locale.
func EnglishName(code string) string {
	l, ok := Lookup(code)
	if !ok {
		return code
	}
	return display.Tags(language.English).Name(l.Tag)
}

type localeContextKey struct{}

// Middleware stores the negotiated locale in the request context. An explicit
// lang query parameter wins over Accept-Language.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lng := r.URL.Query().Get("lang")
			if lng == "" {
				lng = r.Header.Get("Accept-Language")
			}
			if lng != "" {
				r = r.WithContext(WithLocale(r.Context(), Match(lng)))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithLocale returns a context carrying locale.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeContextKey{}, locale)
}

// FromContext returns the negotiated locale, or "" if none was set.
func FromContext(ctx context.Context) string {
	if lng, ok := ctx.Value(localeContextKey{}).(string); ok {
		return lng
	}
	return ""
}
