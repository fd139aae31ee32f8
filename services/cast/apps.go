package cast

import (
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/barnybug/castbridge/services"
)

// Builtin receiver app ids.
var builtinApps = map[string]string{
	"Backdrop": "E8C28D3C",
	"Spotify":  "CC32E753",
	"Youtube":  "233637DE",
}

const appStorePrefix = "castbridge/apps/"

// AppRegistry maps app display names to receiver app ids. Apps seen starting
// on any device are remembered in the store, so they can be launched by name
// later.
type AppRegistry struct {
	store services.Store
	lock  sync.Mutex
	apps  map[string]string
}

func NewAppRegistry(store services.Store) *AppRegistry {
	registry := &AppRegistry{store: store, apps: map[string]string{}}
	for name, appID := range builtinApps {
		registry.apps[name] = appID
	}
	if store != nil {
		nodes, err := store.GetRecursive(appStorePrefix)
		if err != nil {
			log.Printf("Failed to load apps from store: %s", err)
		}
		for _, node := range nodes {
			name := strings.TrimPrefix(node.Key, appStorePrefix)
			registry.apps[name] = node.Value
		}
	}
	return registry
}

// Record remembers an app seen running, persisting newly seen apps.
func (registry *AppRegistry) Record(name, appID string) {
	if name == "" || appID == "" {
		return
	}
	registry.lock.Lock()
	defer registry.lock.Unlock()
	if registry.apps[name] == appID {
		return
	}
	registry.apps[name] = appID
	if registry.store != nil {
		if err := registry.store.Set(appStorePrefix+name, appID); err != nil {
			log.Printf("Failed to persist app '%s': %s", name, err)
		}
	}
}

// Lookup finds the app id for a display name, case-insensitively.
func (registry *AppRegistry) Lookup(name string) (string, bool) {
	registry.lock.Lock()
	defer registry.lock.Unlock()
	if appID, ok := registry.apps[name]; ok {
		return appID, true
	}
	for n, appID := range registry.apps {
		if strings.EqualFold(n, name) {
			return appID, true
		}
	}
	return "", false
}

// Names returns the known app names, sorted.
func (registry *AppRegistry) Names() []string {
	registry.lock.Lock()
	defer registry.lock.Unlock()
	names := make([]string, 0, len(registry.apps))
	for name := range registry.apps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
