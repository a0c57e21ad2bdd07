package disk_cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Netcracker/qubership-apihub-packet-inspector/utils"
	"github.com/Netcracker/qubership-apihub-packet-inspector/view"
	"github.com/akrylysov/pogreb"
	log "github.com/sirupsen/logrus"
)

const (
	ErrorCacheIsNil         = "current cache for %s is nil"
	ErrorCacheStore         = "cache %s failed to store item under key %s. Error %v"
	ErrorCacheLookup        = "cache %s lookup failed for key %s. Error %v"
	ErrorCacheIterate       = "cache %s iteration failed. Error %v"
	ErrorCacheKeyNotInvalid = "invalid cache key for %s"
)

// DiskCache
// a throwaway key-value store on local disk, removed on Close
type DiskCache interface {
	StoreItem(cacheKey string, value []byte) error
	GetItem(cacheKey string) ([]byte, error)
	HasItem(cacheKey string) (bool, error)
	Iterate(fn func(key string, value []byte) error) error
	Sync() int
	Count() int
	Close() error
}

// diskCache
// implementation for public interface
type diskCache struct {
	db        *pogreb.DB
	cacheName string
	cacheDir  string
}

// NewDiskCache
// creates a new instance in a unique directory under cacheDir
func NewDiskCache(cacheName string, cacheDir string) (DiskCache, error) {
	if cacheDir == view.EmptyString {
		cacheDir = os.TempDir()
	}
	cachePath := filepath.Join(cacheDir, cacheName+utils.MakeUniqueId())
	cacheInstance, err := pogreb.Open(cachePath, nil)
	if err != nil {
		return nil, err
	}
	return &diskCache{
		db:        cacheInstance,
		cacheName: cacheName,
		cacheDir:  cachePath,
	}, nil
}

// StoreItem
// stores or replaces the value under the key
func (cache *diskCache) StoreItem(cacheKey string, value []byte) error {
	if cache.db == nil {
		return fmt.Errorf(ErrorCacheIsNil, cache.cacheName)
	}
	if len(cacheKey) < 1 {
		return fmt.Errorf(ErrorCacheKeyNotInvalid, cache.cacheName)
	}
	if err := cache.db.Put([]byte(cacheKey), value); err != nil {
		return fmt.Errorf(ErrorCacheStore, cache.cacheName, cacheKey, err)
	}
	return nil
}

// GetItem
// returns item value, nil for an absent key
func (cache *diskCache) GetItem(cacheKey string) ([]byte, error) {
	if cache.db == nil {
		return nil, fmt.Errorf(ErrorCacheIsNil, cache.cacheName)
	}
	if cacheKey == view.EmptyString {
		return nil, fmt.Errorf(ErrorCacheKeyNotInvalid, cache.cacheName)
	}
	val, err := cache.db.Get([]byte(cacheKey))
	if err != nil {
		return nil, fmt.Errorf(ErrorCacheLookup, cache.cacheName, cacheKey, err)
	}
	return val, nil
}

func (cache *diskCache) HasItem(cacheKey string) (bool, error) {
	if cache.db == nil {
		return false, fmt.Errorf(ErrorCacheIsNil, cache.cacheName)
	}
	return cache.db.Has([]byte(cacheKey))
}

// Iterate
// calls fn for every stored item until fn returns an error
func (cache *diskCache) Iterate(fn func(key string, value []byte) error) error {
	if cache.db == nil {
		return fmt.Errorf(ErrorCacheIsNil, cache.cacheName)
	}
	it := cache.db.Items()
	for {
		key, val, err := it.Next()
		if errors.Is(err, pogreb.ErrIterationDone) {
			return nil
		}
		if err != nil {
			return fmt.Errorf(ErrorCacheIterate, cache.cacheName, err)
		}
		if err = fn(string(key), val); err != nil {
			return err
		}
	}
}

// Sync
// flush cache data on disk
func (cache *diskCache) Sync() int {
	if cache.db != nil {
		if cache.db.Sync() == nil {
			return int(cache.db.Count())
		}
	}
	return -1
}

// Count
// returns cached item count
func (cache *diskCache) Count() int {
	if cache.db != nil {
		return int(cache.db.Count())
	}
	return -1
}

// Close
// dispose cache and remove underlying files
func (cache *diskCache) Close() error {
	if cache.db == nil {
		return fmt.Errorf(ErrorCacheIsNil, cache.cacheName)
	}
	recCnt := cache.db.Count()
	if err := cache.db.Close(); err != nil {
		return err
	}
	log.Debugf("Cache %s closed (%d)", cache.cacheName, recCnt)
	cache.db = nil
	if _, err := os.Stat(cache.cacheDir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("cache path is not accessible '%s'. Error: %v", cache.cacheDir, err)
	}
	if err := os.RemoveAll(cache.cacheDir); err != nil {
		return fmt.Errorf("unable to delete cache files at '%s'. Error: %v", cache.cacheDir, err)
	}
	return nil
}
