package workspace

import "sync"

// Registry holds one workspace per user, created on first use.
type Registry struct {
	mu         sync.Mutex
	opts       Options
	workspaces map[string]*Workspace
}

func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:       opts,
		workspaces: make(map[string]*Workspace),
	}
}

func (r *Registry) Get(userID string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.workspaces[userID]
	if !ok {
		ws = New(userID, r.opts)
		r.workspaces[userID] = ws
	}
	return ws
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}
