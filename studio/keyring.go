package studio

import (
	"strings"
	"sync"
)

// KeyRing 保存每个项目用户选择的 API Key（每个项目至多一个）。
// Key 只存在于内存中，不进入项目状态，也不会被记录到日志。
type KeyRing struct {
	mu   sync.RWMutex
	keys map[string]string
}

// NewKeyRing 创建 KeyRing
func NewKeyRing() *KeyRing {
	return &KeyRing{keys: make(map[string]string)}
}

// HasSelectedKey 项目是否已选择 Key
func (k *KeyRing) HasSelectedKey(projectID string) bool {
	_, ok := k.lookup(projectID)
	return ok
}

// SelectKey 为项目选择 Key，覆盖之前的选择
func (k *KeyRing) SelectKey(projectID, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return validationError(msgKeyEmpty)
	}
	k.mu.Lock()
	k.keys[projectID] = apiKey
	k.mu.Unlock()
	return nil
}

// ClearKey 清除项目的 Key
func (k *KeyRing) ClearKey(projectID string) {
	k.mu.Lock()
	delete(k.keys, projectID)
	k.mu.Unlock()
}

func (k *KeyRing) lookup(projectID string) (string, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	key, ok := k.keys[projectID]
	return key, ok
}
