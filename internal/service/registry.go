package service

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"wacrm-bridge/internal/model"
)

// Registry holds live sessions and their pending QR images for the
// lifetime of the process.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	qrCodes  map[string]string

	creating singleflight.Group
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*model.Session),
		qrCodes:  make(map[string]string),
	}
}

// GetOrCreate returns the session registered under id, invoking factory
// at most once per id even with concurrent callers. created is true only
// for the caller whose factory ran.
func (r *Registry) GetOrCreate(id string, factory func() (*model.Session, error)) (sess *model.Session, created bool, err error) {
	if s, ok := r.Get(id); ok {
		return s, false, nil
	}

	v, err, _ := r.creating.Do(id, func() (any, error) {
		if s, ok := r.Get(id); ok {
			return s, nil
		}

		s, err := factory()
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.sessions[id] = s
		r.mu.Unlock()

		created = true
		return s, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*model.Session), created, nil
}

func (r *Registry) Get(id string) (*model.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove drops id only while it still maps to sess, so a stale handle
// never evicts its replacement.
func (r *Registry) Remove(id string, sess *model.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[id]; ok && cur == sess {
		delete(r.sessions, id)
		return true
	}
	return false
}

func (r *Registry) All() []*model.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *Registry) SetQR(id, image string) {
	r.mu.Lock()
	r.qrCodes[id] = image
	r.mu.Unlock()
}

func (r *Registry) GetQR(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	img, ok := r.qrCodes[id]
	return img, ok
}

func (r *Registry) ClearQR(id string) {
	r.mu.Lock()
	delete(r.qrCodes, id)
	r.mu.Unlock()
}
