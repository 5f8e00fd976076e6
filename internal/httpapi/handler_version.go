package httpapi

import (
	"net/http"

	"github.com/NoxZet/Restful/internal/resource"
	"github.com/NoxZet/Restful/internal/response"
)

// Version is overridden at build time with -ldflags.
var Version = "1.0.0"

func VersionHandler(responses *response.ResponseFactory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResource(w, r, responses, resource.New(resource.Map(
			resource.Pair("name", resource.String("restful")),
			resource.Pair("version", resource.String(Version)),
			resource.Pair("formats", typesTree(responses.Types())),
		)))
	}
}

func typesTree(types []string) *resource.Value {
	out := resource.List()
	for _, t := range types {
		out.Append(resource.String(t))
	}
	return out
}
