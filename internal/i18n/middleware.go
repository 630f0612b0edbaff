package i18n

import "net/http"

// LangCookie remembers a language chosen with the ?lang= query parameter.
const LangCookie = "lang"

// Middleware injects a localizer into every request context. The language is
// taken from ?lang=, then the lang cookie, then Accept-Language, then the
// default. The cookie is scoped to basePath, the URL prefix the app is
// mounted under ("" for the root).
func Middleware(basePath string) func(http.Handler) http.Handler {
	cookiePath := basePath + "/"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var prefs []string
			if q := r.URL.Query().Get("lang"); q != "" {
				lang := Match(q)
				http.SetCookie(w, &http.Cookie{
					Name:     LangCookie,
					Value:    lang,
					Path:     cookiePath,
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
				prefs = append(prefs, lang)
			}
			if c, err := r.Cookie(LangCookie); err == nil && c.Value != "" {
				prefs = append(prefs, c.Value)
			}
			prefs = append(prefs, r.Header.Get("Accept-Language"))

			ctx := WithLocalizer(r.Context(), NewLocalizer(Match(prefs...)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
