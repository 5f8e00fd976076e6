package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/NoxZet/Restful/internal/mapping"
	"github.com/NoxZet/Restful/internal/models"
	"github.com/NoxZet/Restful/internal/resource"
	"github.com/NoxZet/Restful/internal/response"
)

// ResourceStore is implemented by *store.Store.
type ResourceStore interface {
	Put(ctx context.Context, name string, data *resource.Value, contentType string) (int64, error)
	Get(ctx context.Context, name string) (*models.Resource, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]models.ResourceInfo, error)
}

func ListResourcesHandler(st ResourceStore, responses *response.ResponseFactory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		infos, err := st.List(r.Context())
		if err != nil {
			writeError(w, r, responses, err)
			return
		}

		items := resource.List()
		for _, info := range infos {
			items.Append(info.Tree())
		}
		writeResource(w, r, responses, resource.New(items))
	}
}

func GetResourceHandler(st ResourceStore, responses *response.ResponseFactory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := st.Get(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			writeError(w, r, responses, err)
			return
		}

		w.Header().Set("X-Resource-Revision", strconv.FormatInt(res.Revision, 10))
		writeResource(w, r, responses, resource.New(res.Data))
	}
}

func PutResourceHandler(st ResourceStore, mappers *mapping.Context, responses *response.ResponseFactory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, ct, err := decodeBody(w, r, mappers)
		if err != nil {
			writeError(w, r, responses, err)
			return
		}

		rev, err := st.Put(r.Context(), chi.URLParam(r, "name"), data, ct)
		if err != nil {
			writeError(w, r, responses, err)
			return
		}

		w.Header().Set("X-Resource-Revision", strconv.FormatInt(rev, 10))
		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteResourceHandler(st ResourceStore, responses *response.ResponseFactory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
			writeError(w, r, responses, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
