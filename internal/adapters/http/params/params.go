// Package params reads route parameters from chi-routed requests.
package params

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// ErrInvalidParam reports a route parameter that is not valid percent-encoding.
var ErrInvalidParam = errors.New("invalid route parameter")

// Path returns the decoded value of the route parameter name.
//
// chi matches against r.URL.RawPath when it is set, leaving parameters
// percent-encoded; otherwise it matches the already decoded r.URL.Path.
func Path(r *http.Request, name string) (string, error) {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v, nil
	}
	decoded, err := url.PathUnescape(v)
	if err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrInvalidParam, name, err)
	}
	return decoded, nil
}
