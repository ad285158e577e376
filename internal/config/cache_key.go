package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// IdentityTokenKey returns the cache key for a resolved bearer token. The
// token itself is never stored; callers pass its digest.
func (r *CacheKeyStruct) IdentityTokenKey(tokenDigest string) string {
	return fmt.Sprintf("identity:token:%s", tokenDigest)
}

var CacheKey = NewCacheKeyStruct()
