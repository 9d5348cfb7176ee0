package mediastore

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	blob      Blob
	expiresAt time.Time
}

// MemoryStore 进程内存储，过期条目在读取与写入时惰性清理。
type MemoryStore struct {
	ttl    time.Duration
	prefix string
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry
	closed  bool
}

// NewMemoryStore 创建内存存储。ttl 为零表示永不过期。
func NewMemoryStore(ttl time.Duration, publicPrefix string) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		prefix:  publicPrefix,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) expired(e memoryEntry, now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Put 保存一份拷贝并返回 URL。
func (s *MemoryStore) Put(_ context.Context, mimeType string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", errClosed
	}

	now := s.now()
	for id, e := range s.entries {
		if s.expired(e, now) {
			delete(s.entries, id)
		}
	}

	e := memoryEntry{blob: Blob{MIMEType: mimeType, Data: append([]byte(nil), data...)}}
	if s.ttl > 0 {
		e.expiresAt = now.Add(s.ttl)
	}
	id := newID()
	s.entries[id] = e
	return s.prefix + id, nil
}

// Get 读取媒体。
func (s *MemoryStore) Get(_ context.Context, id string) (*Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	e, ok := s.entries[id]
	if !ok || s.expired(e, s.now()) {
		return nil, ErrNotFound
	}
	b := e.blob
	return &b, nil
}

// Delete 删除媒体，不存在时不报错。
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Open 按 Put 返回的 URL 读取媒体，URL 不属于本存储时返回 ErrNotFound。
func (s *MemoryStore) Open(ctx context.Context, url string) (*Blob, error) {
	id, ok := IDFromURL(s.prefix, url)
	if !ok {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Remove 按 URL 删除媒体，外部 URL 直接忽略。
func (s *MemoryStore) Remove(ctx context.Context, url string) error {
	id, ok := IDFromURL(s.prefix, url)
	if !ok {
		return nil
	}
	return s.Delete(ctx, id)
}

// Len 当前条目数（含尚未清理的过期条目）
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close 释放全部条目。
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	return nil
}
