package handler

import (
	"net/http"
	"os"
	"path/filepath"
)

// Pages maps each site route to the file that renders it.
var Pages = map[string]string{
	"/":          "index.html",
	"/login":     "login.html",
	"/signup":    "signup.html",
	"/prepare":   "prepare.html",
	"/chat":      "chat.html",
	"/interview": "interview.html",
	"/privacy":   "privacy.html",
	"/terms":     "terms.html",
	"/cookies":   "cookies.html",
}

// PagesHandler serves the prebuilt site from a directory
type PagesHandler struct {
	dir string
}

func NewPagesHandler(dir string) *PagesHandler {
	return &PagesHandler{dir: dir}
}

// Page serves one HTML file
func (h *PagesHandler) Page(file string) http.HandlerFunc {
	path := filepath.Join(h.dir, file)
	return func(w http.ResponseWriter, r *http.Request) {
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, path)
	}
}

// Assets serves scripts, styles and images under /static/
func (h *PagesHandler) Assets() http.Handler {
	return http.StripPrefix("/static/", http.FileServer(http.Dir(filepath.Join(h.dir, "static"))))
}
