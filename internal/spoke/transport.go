package spoke

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Songjaeheon0923/Fin-Hub/internal/ferrors"
	"github.com/Songjaeheon0923/Fin-Hub/internal/reqctx"
)

// callRequest is the wire shape a hub router posts to invoke a tool.
type callRequest struct {
	QualifiedName string          `json:"qualifiedName"`
	Arguments     json.RawMessage `json:"arguments"`
	CorrelationID string          `json:"correlationId"`
}

// Router returns the chi.Router a spoke process serves: the health
// endpoint (spec §6.3) plus the tool invocation endpoint the hub's
// dispatcher calls (spec §6.4).
func Router(rt *Runtime) chi.Router {
	router := chi.NewRouter()
	router.Mount("/", rt.HealthRouter())
	router.Post("/tools/call", rt.handleCall)
	return router
}

func (r *Runtime) handleCall(w http.ResponseWriter, req *http.Request) {
	var body callRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeCallError(w, ferrors.Wrap(ferrors.KindParseError, "malformed call request", err))
		return
	}

	rc := reqctx.RequestContext{CorrelationID: body.CorrelationID}
	result, err := r.Dispatch(req.Context(), rc, body.QualifiedName, body.Arguments)
	if err != nil {
		writeCallError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func writeCallError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	var fe *ferrors.Error
	if stderrors.As(err, &fe) {
		message = fe.Message
		switch fe.Kind {
		case ferrors.KindMethodNotFound:
			status = http.StatusNotFound
		case ferrors.KindInvalidParams, ferrors.KindParseError, ferrors.KindInvalidRequest:
			status = http.StatusBadRequest
		case ferrors.KindHandlerFailure, ferrors.KindTransient:
			status = http.StatusBadGateway
		default:
			status = http.StatusInternalServerError
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
