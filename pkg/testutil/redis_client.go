package testutil

import (
	"context"
	"sync"
	"time"
)

// MockRedisClient keys behave like a real single-node redis for the subset
// the domains use. Funcs override individual operations when set.
type MockRedisClient struct {
	ExistFunc  func(ctx context.Context, key string) (bool, error)
	DelFunc    func(ctx context.Context, key ...string) error
	SetFunc    func(ctx context.Context, key, value string) error
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetObjFunc func(ctx context.Context, key string, obj any, ttl time.Duration) error
	GetObjFunc func(ctx context.Context, key string, v any) error
	SetNXFunc  func(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	mutex  sync.Mutex
	values map[string]string
}

func (m *MockRedisClient) Exist(ctx context.Context, key string) (bool, error) {
	if m.ExistFunc != nil {
		return m.ExistFunc(ctx, key)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, ok := m.values[key]
	return ok, nil
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, keys...)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}

	return nil
}

func (m *MockRedisClient) Set(ctx context.Context, key, value string) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value

	return nil
}

func (m *MockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.values[key], nil
}

func (m *MockRedisClient) SetObj(ctx context.Context, key string, obj any, ttl time.Duration) error {
	if m.SetObjFunc != nil {
		return m.SetObjFunc(ctx, key, obj, ttl)
	}

	return nil
}

func (m *MockRedisClient) GetObj(ctx context.Context, key string, v any) error {
	if m.GetObjFunc != nil {
		return m.GetObjFunc(ctx, key, v)
	}

	return nil
}

func (m *MockRedisClient) SetNX(
	ctx context.Context, key, value string, ttl time.Duration,
) (bool, error) {
	if m.SetNXFunc != nil {
		return m.SetNXFunc(ctx, key, value, ttl)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.values == nil {
		m.values = map[string]string{}
	}

	if _, ok := m.values[key]; ok {
		return false, nil
	}

	m.values[key] = value
	return true, nil
}
