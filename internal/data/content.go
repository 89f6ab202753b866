package data

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Content describes the object carried by a file-transfer session: its size,
// MIME type and server-side expiration. The storage location stays empty until
// the transfer completes; once set it is never reset for this instance.
type Content struct {
	mu         sync.RWMutex
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mimeType"`
	Expiration time.Time `json:"expiration"`
	location   string
}

// NewContent builds a descriptor for a remote object that has not been
// materialized locally yet.
func NewContent(name string, size int64, mimeType string, expiration time.Time) *Content {
	return &Content{
		Name:       name,
		Size:       size,
		MimeType:   mimeType,
		Expiration: expiration,
	}
}

// Location returns the local storage location, or "" while the transfer is
// still in flight.
func (c *Content) Location() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.location
}

// SetLocation finalizes the descriptor. The first value wins; later calls are
// ignored so a completed descriptor can never be re-pointed.
func (c *Content) SetLocation(loc string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.location != "" {
		return
	}
	c.location = loc
}

// Expired reports whether the remote object's validity window has passed.
func (c *Content) Expired(now time.Time) bool {
	return !c.Expiration.IsZero() && now.After(c.Expiration)
}

func (c *Content) MarshalJSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	type view struct {
		Name       string    `json:"name"`
		Size       int64     `json:"size"`
		MimeType   string    `json:"mimeType"`
		Expiration time.Time `json:"expiration"`
		Location   string    `json:"location,omitempty"`
	}
	return json.Marshal(view{c.Name, c.Size, c.MimeType, c.Expiration, c.location})
}

func (c *Content) ToJSON(w io.Writer) error { return json.NewEncoder(w).Encode(c) }
