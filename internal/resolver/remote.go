package resolver

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"QrestAPI/internal/apperr"
	"QrestAPI/internal/resource"
)

// RemoteFunc computes a virtual collection for a parent record. The params
// it receives have already been gated by the parent resource's whitelist.
type RemoteFunc func(ctx context.Context, parent map[string]any, params url.Values) ([]map[string]any, error)

var (
	remoteMu sync.RWMutex
	remotes  = map[string]RemoteFunc{}
)

// RegisterRemote installs the logic behind a declared remote collection.
// Called during startup, before the server accepts requests.
func RegisterRemote(resourceName, remoteName string, fn RemoteFunc) {
	remoteMu.Lock()
	defer remoteMu.Unlock()
	remotes[resourceName+"."+remoteName] = fn
}

// Remoted serves the remoted action: the parent record's named remote
// collection. Declared-but-unregistered remotes fail closed as not found.
func Remoted(ctx context.Context, res *resource.Resource, id any, remoteName string, params url.Values) ([]map[string]any, error) {
	if !res.HasRemote(remoteName) {
		return nil, &apperr.NotFound{Resource: res.Name, Key: remoteName}
	}
	remoteMu.RLock()
	fn, ok := remotes[res.Name+"."+remoteName]
	remoteMu.RUnlock()
	if !ok {
		return nil, &apperr.NotFound{Resource: res.Name, Key: remoteName}
	}

	parent, err := Find(ctx, res, id)
	if err != nil {
		return nil, err
	}
	return fn(ctx, parent, GateParams(res, params))
}

// GateParams filters raw parameters down to reserved directives and keys
// resolvable against the resource's whitelist. Remote logic never sees
// unvetted client input.
func GateParams(res *resource.Resource, params url.Values) url.Values {
	gated := url.Values{}
	for key, values := range params {
		if isReservedParam(key) || res.Allowed(baseKey(key)) != resource.KindNone {
			gated[key] = values
		}
	}
	return gated
}

func isReservedParam(key string) bool {
	switch key {
	case "order", "limit", "offset", "page", "per_page", "include":
		return true
	}
	return false
}

// baseKey reduces a filter key to the name the whitelist knows: the __op
// suffix is stripped and dotted paths check their first segment.
func baseKey(key string) string {
	if i := strings.LastIndex(key, "__"); i >= 0 {
		key = key[:i]
	}
	if i := strings.IndexByte(key, '.'); i >= 0 {
		key = key[:i]
	}
	return key
}
