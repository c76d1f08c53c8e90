package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Pages are the client routes answered with the single-page shell.
var Pages = []string{"/", "/services", "/destinations", "/contact", "/admin-login", "/admin"}

// LegacyRedirects maps retired routes to their replacement.
var LegacyRedirects = map[string]string{
	"/tarifs": "/",
}

// SiteHandler serves the built front-end from a directory.
type SiteHandler struct {
	root  string
	pages map[string]bool
}

func NewSiteHandler(root string) *SiteHandler {
	pages := make(map[string]bool, len(Pages))
	for _, p := range Pages {
		pages[p] = true
	}
	return &SiteHandler{root: root, pages: pages}
}

func (h *SiteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	if target, ok := LegacyRedirects[clean]; ok {
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		return
	}
	if h.pages[clean] {
		h.serveFile(w, r, "index.html")
		return
	}

	name := filepath.FromSlash(strings.TrimPrefix(clean, "/"))
	if info, err := os.Stat(filepath.Join(h.root, name)); err == nil && !info.IsDir() {
		h.serveFile(w, r, name)
		return
	}
	http.NotFound(w, r)
}

func (h *SiteHandler) serveFile(w http.ResponseWriter, r *http.Request, name string) {
	full := filepath.Join(h.root, name)
	if _, err := os.Stat(full); err != nil {
		writeError(w, "Site not built", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, full)
}

// Health check endpoint
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":%d,"version":"1.0.0"}`, time.Now().Unix())
}
