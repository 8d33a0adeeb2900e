package router

import (
	"net/http"
	"sort"

	"QrestAPI/internal/config"
	"QrestAPI/internal/handler"
	"QrestAPI/internal/logger"
	"QrestAPI/internal/metrics"
	"QrestAPI/internal/resource"

	"github.com/gorilla/mux"
)

// InitRoutes builds the router from the registry. Only actions on a
// resource's allow-list get a registered route: a disabled action is not
// rejected at runtime, it simply does not exist as an endpoint.
func InitRoutes(cfg *config.Config) http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", metrics.Handler())

	api := r.PathPrefix("/api").Subrouter()

	names := make([]string, 0, len(resource.Registry))
	for name := range resource.Registry {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		registerResource(api, resource.Registry[name])
	}

	var h http.Handler = r
	h = withLogging(h)
	h = withCORS(cfg.CORS.AllowOrigin, cfg.CORS.AllowCredentials, h)
	return h
}

func registerResource(api *mux.Router, res *resource.Resource) {
	base := "/" + res.Name
	item := base + "/{id}"

	if res.ActionEnabled("index") {
		api.HandleFunc(base, handler.Index(res)).Methods(http.MethodGet)
	}
	if res.ActionEnabled("create") {
		api.HandleFunc(base, handler.Create(res)).Methods(http.MethodPost)
	}
	// fixed paths before the {id} wildcard so "count" never matches as an id
	if res.ActionEnabled("count") {
		api.HandleFunc(base+"/count", handler.Count(res)).Methods(http.MethodGet)
	}
	if res.ActionEnabled("show") {
		api.HandleFunc(item, handler.Show(res)).Methods(http.MethodGet)
	}
	if res.ActionEnabled("update") {
		api.HandleFunc(item, handler.Update(res)).Methods(http.MethodPut, http.MethodPatch)
	}
	if res.ActionEnabled("destroy") {
		api.HandleFunc(item, handler.Destroy(res)).Methods(http.MethodDelete)
	}
	if res.ActionEnabled("associated") {
		relNames := make([]string, 0, len(res.Relations))
		for relName := range res.Relations {
			relNames = append(relNames, relName)
		}
		sort.Strings(relNames)
		for _, relName := range relNames {
			api.HandleFunc(item+"/"+relName, handler.Associated(res, relName)).Methods(http.MethodGet)
		}
	}
	if res.ActionEnabled("remoted") {
		for _, remoteName := range res.Remotes {
			api.HandleFunc(item+"/"+remoteName, handler.Remoted(res, remoteName)).Methods(http.MethodGet)
		}
	}

	logger.Info("routes_registered", map[string]any{
		"resource": res.Name,
		"actions":  res.Actions,
	})
}
