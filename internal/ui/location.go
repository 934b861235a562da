package ui

import (
	"net/url"
	"sync"

	"voicecart/internal/logging"
)

// Location simulates the browser navigation state. The dispatcher
// pushes paths into it; the chat model reads it to derive the ambient
// page context and to show the current page in the header.
type Location struct {
	mu    sync.Mutex
	path  string
	query string
}

// NewLocation starts at the home page.
func NewLocation() *Location {
	return &Location{path: "/"}
}

// GoTo sets the current path and clears any search query.
func (l *Location) GoTo(path string) {
	l.mu.Lock()
	l.path = path
	l.query = ""
	l.mu.Unlock()
	logging.Get(logging.CategoryUI).Info("Navigate: %s", path)
}

// GoToSearch sets the current path with a search query parameter.
func (l *Location) GoToSearch(path, query string) {
	l.mu.Lock()
	l.path = path
	l.query = query
	l.mu.Unlock()
	logging.Get(logging.CategoryUI).Info("Navigate: %s?search=%s", path, url.QueryEscape(query))
}

// Path returns the current path.
func (l *Location) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// String renders the location as a URL path for display.
func (l *Location) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.query != "" {
		return l.path + "?search=" + url.QueryEscape(l.query)
	}
	return l.path
}
