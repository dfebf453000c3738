package repo

import "sync"

// Registry is an explicit process-wide holder of Repo instances keyed
// by URL. Spec.md §9 flags the source's module-level singleton registry
// as something to redesign: this type makes that choice the caller's —
// construct one Registry in main and pass it down, rather than reaching
// for a package-level global.
type Registry struct {
	mu    sync.Mutex
	repos map[string]*Repo
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{repos: make(map[string]*Repo)}
}

// Get returns the Repo registered for url, if any.
func (r *Registry) Get(url string) (*Repo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	repo, ok := r.repos[url]
	return repo, ok
}

// GetOrCreate returns the existing Repo for url, or builds one with
// factory and registers it.
func (r *Registry) GetOrCreate(url string, factory func() *Repo) *Repo {
	r.mu.Lock()
	defer r.mu.Unlock()
	if repo, ok := r.repos[url]; ok {
		return repo
	}
	repo := factory()
	r.repos[url] = repo
	return repo
}

// Remove drops url's Repo from the registry without closing it; callers
// that want it closed should do so themselves first.
func (r *Registry) Remove(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.repos, url)
}

// All returns every URL currently registered.
func (r *Registry) All() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	urls := make([]string, 0, len(r.repos))
	for url := range r.repos {
		urls = append(urls, url)
	}
	return urls
}
