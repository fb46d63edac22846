package params

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	. "github.com/smartystreets/goconvey/convey"
)

func serve(target string) (string, error) {
	var (
		got string
		err error
	)
	r := chi.NewRouter()
	r.Get("/items/{id}", func(w http.ResponseWriter, req *http.Request) {
		got, err = Path(req, "id")
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, http.NoBody))
	return got, err
}

func TestPath(t *testing.T) {
	cases := []struct {
		name   string
		target string
		want   string
	}{
		{"plain segment", "/items/chess", "chess"},
		{"encoded plus", "/items/c%2B%2B", "c++"},
		{"encoded at sign", "/items/ann%40example.com", "ann@example.com"},
		{"encoded comma", "/items/a%2Cb", "a,b"},
		{"encoded slash", "/items/a%2Fb", "a/b"},
		{"encoded space", "/items/two%20words", "two words"},
		{"literal percent", "/items/50%25", "50%"},
		{"unencoded plus", "/items/c++", "c++"},
	}

	Convey("Given a chi route with a parameter", t, func() {
		for _, tc := range cases {
			Convey("A request with "+tc.name+" yields the decoded value", func() {
				got, err := serve(tc.target)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, tc.want)
			})
		}
	})
}

func TestPathInvalidEscape(t *testing.T) {
	Convey("Given a raw path whose parameter is not valid percent-encoding", t, func() {
		req := httptest.NewRequest(http.MethodGet, "/items/x", http.NoBody)
		req.URL.RawPath = "/items/%zz"
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", "%zz")
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

		Convey("Then Path reports ErrInvalidParam", func() {
			_, err := Path(req, "id")
			So(errors.Is(err, ErrInvalidParam), ShouldBeTrue)
		})
	})
}
