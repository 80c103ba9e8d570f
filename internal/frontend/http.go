package frontend

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/Songjaeheon0923/Fin-Hub/internal/ferrors"
	"github.com/Songjaeheon0923/Fin-Hub/internal/jsonrpc"
)

// HTTPHandler exposes Server over a single HTTP endpoint accepting
// POSTed JSON-RPC requests, matching the MCP-over-HTTP transport shape.
func (s *Server) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeResponse(w, jsonrpc.NewError(nil, ferrors.Code(ferrors.KindParseError), "failed to read body", nil))
			return
		}

		var req jsonrpc.Request
		if err := json.Unmarshal(body, &req); err != nil {
			writeResponse(w, errorResponse(nil, ferrors.ParseError(err)))
			return
		}

		resp := s.Handle(r.Context(), &req)
		if resp == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeResponse(w, resp)
	}
}

func writeResponse(w http.ResponseWriter, resp *jsonrpc.Response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
