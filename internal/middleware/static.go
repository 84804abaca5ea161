package middleware

import (
	"net/http"
	"os"
	"path/filepath"
)

const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 200 200"><rect width="200" height="200" fill="#f0f7f0"/><path d="M100 50l18 31h-12v28h-12V81H82l18-31zm-38 66l12 7-6 10h24v12H56l18-29zm76 0l18 29h-36v-12h24l-6-10 12-7z" fill="#4a7"/><text x="100" y="180" text-anchor="middle" font-family="Arial" font-size="14" fill="#666">ARTIKEL</text></svg>`

// StaticFileServer serves article images with a placeholder fallback.
func StaticFileServer(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean(r.URL.Path))

		if _, err := os.Stat(path); err == nil {
			w.Header().Set("Cache-Control", "public, max-age=2592000")
			http.ServeFile(w, r, path)
			return
		}

		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Write([]byte(placeholderSVG))
	})
}
