package httpapi

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/NoxZet/Restful/internal/mapping"
	"github.com/NoxZet/Restful/internal/negotiate"
	"github.com/NoxZet/Restful/internal/observability"
	"github.com/NoxZet/Restful/internal/resource"
	"github.com/NoxZet/Restful/internal/response"
	"github.com/NoxZet/Restful/internal/store"
)

var (
	// ErrBadRequest marks request bodies that could not be decoded.
	ErrBadRequest = errors.New("bad request")
	// ErrUnsupportedContentType is returned for bodies no mapper can read.
	ErrUnsupportedContentType = errors.New("unsupported content type")
)

const maxBodyBytes = 1 << 20

// writeResource negotiates the format for res and sends it.
func writeResource(w http.ResponseWriter, r *http.Request, responses *response.ResponseFactory, res resource.Resource) {
	resp, err := responses.Create(r, res, "")
	if err != nil {
		writeError(w, r, responses, err)
		return
	}
	if err := resp.Send(w, r); err != nil {
		writeError(w, r, responses, err)
	}
}

// writeError maps err to a status and sends {"code", "error"} in the
// negotiated format. Plain text is used when negotiation fails or the
// negotiated response cannot carry a status and body, such as the null type.
func writeError(w http.ResponseWriter, r *http.Request, responses *response.ResponseFactory, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = http.StatusText(status)
	} else {
		slog.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}

	if status == http.StatusNotAcceptable {
		http.Error(w, msg, status)
		return
	}

	body := resource.New(resource.Map(
		resource.Pair("code", resource.Scalar(status)),
		resource.Pair("error", resource.String(msg)),
	))
	resp, cerr := responses.Create(r, body, "")
	if cerr != nil {
		http.Error(w, msg, status)
		return
	}
	ss, ok := resp.(response.StatusSetter)
	if !ok || resp.ContentType() == resource.MIMENull {
		http.Error(w, msg, status)
		return
	}
	ss.SetStatus(status)
	if serr := resp.Send(w, r); serr != nil {
		http.Error(w, msg, status)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, negotiate.ErrUnsupportedMediaType):
		return http.StatusNotAcceptable
	case errors.Is(err, ErrUnsupportedContentType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrBadRequest), errors.Is(err, store.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, mapping.ErrInvalidInput):
		// The stored tree has no representation in the negotiated format.
		return http.StatusNotAcceptable
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads the request body with the mapper for its Content-Type.
// It returns the tree and the base content type.
func decodeBody(w http.ResponseWriter, r *http.Request, mappers *mapping.Context) (*resource.Value, string, error) {
	ct := mapping.BaseType(r.Header.Get("Content-Type"))
	if ct == "" {
		return nil, "", fmt.Errorf("%w: missing Content-Type", ErrUnsupportedContentType)
	}
	m, err := mappers.Mapper(ct)
	if err != nil {
		return nil, ct, fmt.Errorf("%w: %w", ErrUnsupportedContentType, err)
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, ct, fmt.Errorf("%w: read body: %v", ErrBadRequest, err)
	}
	defer r.Body.Close()

	v, err := m.Parse(body)
	if err != nil {
		observability.MappingErrorsTotal.WithLabelValues(ct, "decode").Inc()
		return nil, ct, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return v, ct, nil
}
