// Package transport exposes the registry's HTTP-shaped interface (spec
// §6.2): register/deregister/heartbeat/discover/list-tools over plain
// JSON, routed with the same chi mux style the MCP runtime uses for its
// own HTTP surface.
package transport

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Songjaeheon0923/Fin-Hub/internal/ferrors"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry"
)

// Router builds the chi.Router exposing the registry's HTTP interface.
func Router(reg *registry.Registry) chi.Router {
	r := chi.NewRouter()

	r.Post("/registry/register", func(w http.ResponseWriter, req *http.Request) {
		var in registry.RegisterInput
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			writeError(w, ferrors.ParseError(err))
			return
		}
		inst, err := reg.Register(req.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, inst)
	})

	r.Delete("/registry/{instanceId}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "instanceId")
		if err := reg.Deregister(req.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/registry/{instanceId}/heartbeat", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "instanceId")
		if err := reg.Heartbeat(req.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/registry/discover", func(w http.ResponseWriter, req *http.Request) {
		filter := parseFilter(req)
		instances, err := reg.Discover(req.Context(), filter)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, instances)
	})

	r.Get("/registry/tools", func(w http.ResponseWriter, req *http.Request) {
		filter := parseFilter(req)
		tools, err := reg.ListTools(req.Context(), filter)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tools)
	})

	return r
}

func parseFilter(req *http.Request) registry.Filter {
	q := req.URL.Query()
	filter := registry.Filter{
		Name: q.Get("name"),
		Tag:  q.Get("tag"),
	}
	if raw := q.Get("minStatus"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.MinStatus = registry.Status(n)
		}
	}
	return filter
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	kind := ferrors.KindOf(err)
	code := ferrors.Code(kind)
	status := http.StatusInternalServerError
	switch {
	case code == -32601:
		status = http.StatusNotFound
	case code == -32602 || code == -32600 || code == -32700:
		status = http.StatusBadRequest
	case kind == ferrors.KindNoHealthyInstance || kind == ferrors.KindAllInstancesOpen:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"code":    code,
		"message": err.Error(),
	})
}
