package handler

// The seven resource actions plus count. Each constructor closes over its
// resource (and relation/remote name where relevant); the router only
// builds handlers for actions the resource has enabled, so a disabled
// action has no handler to reach.

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"QrestAPI/internal/logger"
	"QrestAPI/internal/query"
	"QrestAPI/internal/resolver"
	"QrestAPI/internal/resource"
	"QrestAPI/internal/serialize"

	"github.com/gorilla/mux"
)

func Index(res *resource.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := query.Classify(res, r.URL.Query())
		if err != nil {
			writeError(w, err)
			return
		}
		items, err := resolver.List(r.Context(), res, ref)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			res.Name: serialize.Collection(res, items),
		})
	}
}

func Count(res *resource.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := query.Classify(res, r.URL.Query())
		if err != nil {
			writeError(w, err)
			return
		}
		n, err := resolver.Count(r.Context(), res, ref)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": n})
	}
}

func Create(res *resource.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r)
		if !ok {
			return
		}
		item, err := resolver.Create(r.Context(), res, body)
		if err != nil {
			writeError(w, err)
			return
		}
		pk := res.GetPrimaryKey()
		w.Header().Set("Location", fmt.Sprintf("/api/%s/%v", res.Name, item[pk]))
		writeJSON(w, http.StatusCreated, serialize.Item(res, item))
	}
}

func Show(res *resource.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := resolver.Find(r.Context(), res, mux.Vars(r)["id"])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, serialize.Item(res, item))
	}
}

func Update(res *resource.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r)
		if !ok {
			return
		}
		if err := resolver.Update(r.Context(), res, mux.Vars(r)["id"], body); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Destroy(res *resource.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := resolver.Destroy(r.Context(), res, mux.Vars(r)["id"]); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Associated lists the parent's named association, nested under a root key
// named after the association.
func Associated(res *resource.Resource, relName string) http.HandlerFunc {
	target := res.GetRelation(relName).Target()
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := query.Classify(target, r.URL.Query())
		if err != nil {
			writeError(w, err)
			return
		}
		result, err := resolver.Associated(r.Context(), res, mux.Vars(r)["id"], relName, ref)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			relName: serializeAssociated(res.GetRelation(relName), result),
		})
	}
}

// Remoted has the same response shape as Associated, but the collection
// comes from registered remote logic.
func Remoted(res *resource.Resource, remoteName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := resolver.Remoted(r.Context(), res, mux.Vars(r)["id"], remoteName, r.URL.Query())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{remoteName: items})
	}
}

func serializeAssociated(rel *resource.Relation, result any) any {
	switch v := result.(type) {
	case nil:
		return nil
	case map[string]any:
		return serialize.Item(rel.Target(), v)
	case []map[string]any:
		return serialize.Collection(rel.Target(), v)
	}
	return result
}

func readBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Warn("read_body_failed", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": "failed to read body"})
		return nil, false
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		logger.Warn("invalid_json", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": "invalid JSON body"})
		return nil, false
	}
	return body, true
}
