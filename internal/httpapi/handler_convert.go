package httpapi

import (
	"net/http"

	"github.com/NoxZet/Restful/internal/mapping"
	"github.com/NoxZet/Restful/internal/resource"
	"github.com/NoxZet/Restful/internal/response"
)

// ConvertHandler decodes the body by its Content-Type and sends it back in
// the format negotiated from Accept. Nothing is stored.
func ConvertHandler(mappers *mapping.Context, responses *response.ResponseFactory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, _, err := decodeBody(w, r, mappers)
		if err != nil {
			writeError(w, r, responses, err)
			return
		}
		writeResource(w, r, responses, resource.New(data))
	}
}
