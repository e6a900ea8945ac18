package session

import (
	"net/http"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Asset is an uploaded file.
type Asset struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Mime string `json:"mime"`
	Data []byte `json:"-"`
}

// Assets holds uploaded blobs in memory, keyed by ULID. It implements
// render.Blobs.
type Assets struct {
	mu     sync.RWMutex
	assets map[string]*Asset
}

// NewAssets creates an empty blob store.
func NewAssets() *Assets {
	return &Assets{assets: make(map[string]*Asset)}
}

// Add stores data and returns its id. An empty mime is sniffed.
func (a *Assets) Add(name string, data []byte, mime string) string {
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	id := ulid.Make().String()

	a.mu.Lock()
	a.assets[id] = &Asset{ID: id, Name: name, Mime: mime, Data: data}
	a.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"asset_id": id,
		"name":     name,
		"size":     len(data),
	}).Debug("Asset stored")
	return id
}

// Get returns the asset with id.
func (a *Assets) Get(id string) (*Asset, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	as, ok := a.assets[id]
	return as, ok
}

// Blob returns the bytes of asset id.
func (a *Assets) Blob(id string) ([]byte, bool) {
	as, ok := a.Get(id)
	if !ok {
		return nil, false
	}
	return as.Data, true
}

// List returns every asset, oldest first.
func (a *Assets) List() []Asset {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Asset, 0, len(a.assets))
	for _, as := range a.assets {
		out = append(out, *as)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Remove deletes asset id.
func (a *Assets) Remove(id string) {
	a.mu.Lock()
	delete(a.assets, id)
	a.mu.Unlock()
}

// Clear deletes every asset.
func (a *Assets) Clear() {
	a.mu.Lock()
	a.assets = make(map[string]*Asset)
	a.mu.Unlock()
}
