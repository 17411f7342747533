package respond

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/travelcrm/backend/internal/models"
)

// PathKind resolves the {kind} segment ("suppliers", "vehicles", "hotels").
// Unknown kinds get a 404.
func PathKind(w http.ResponseWriter, r *http.Request) (models.CounterpartyKind, bool) {
	kind, ok := models.KindFromPlural(r.PathValue("kind"))
	if !ok {
		Fail(w, http.StatusNotFound, "Resource not found")
		return "", false
	}
	return kind, true
}

// PathUUID parses the named path segment. A malformed id cannot match any
// row, so it is reported as "<what> not found".
func PathUUID(w http.ResponseWriter, r *http.Request, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		Fail(w, http.StatusNotFound, what+" not found")
		return uuid.Nil, false
	}
	return id, true
}
