package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi"

	"github.com/bookdepot/stock-service/api"
	"github.com/bookdepot/stock-service/config"
	"github.com/bookdepot/stock-service/core"
	"github.com/bookdepot/stock-service/core/bundle"
	"github.com/bookdepot/stock-service/core/fulfillment"
	"github.com/bookdepot/stock-service/core/ledger"
	"github.com/bookdepot/stock-service/core/user"
	"github.com/bookdepot/stock-service/testutil"
)

func TestMain(m *testing.M) {
	testutil.ConfigLogging()
	api.ConfigureMetrics()
	os.Exit(m.Run())
}

var (
	asAdmin  = testutil.RequestOptions{Username: "gertrude", Password: "adminpw"}
	asSchool = testutil.RequestOptions{Username: "stmarys", Password: "schoolpw"}
)

// loginFixture authenticates the two test users and rejects everyone else.
func loginFixture(_ context.Context, username, _ string) (user.User, error) {
	switch username {
	case "gertrude":
		return user.User{Username: "gertrude", Role: user.RoleAdmin}, nil
	case "stmarys":
		return user.User{Username: "stmarys", Role: user.RoleSchool, SchoolID: 7}, nil
	default:
		return user.User{}, core.ErrNotFound
	}
}

func get(url string, t *testing.T, op ...testutil.RequestOptions) *http.Response {
	return testutil.SendRequest(http.MethodGet, url, nil, t, op...)
}

func expectError(res *http.Response, want *api.ErrResponse, t *testing.T) {
	got := &api.ErrResponse{}
	testutil.Unmarshal(res, got, t)

	if got.StatusText != want.StatusText {
		t.Errorf("status text got=%s want=%s", got.StatusText, want.StatusText)
	}
	if got.ErrorText != want.ErrorText {
		t.Errorf("error text got=%s want=%s", got.ErrorText, want.ErrorText)
	}
	if got.Remaining != want.Remaining {
		t.Errorf("remaining got=%d want=%d", got.Remaining, want.Remaining)
	}
}

func invalidReq(msg string) *api.ErrResponse {
	return &api.ErrResponse{StatusText: "Invalid request.", ErrorText: msg}
}

func getTime(t string) time.Time {
	tm, err := time.Parse(time.RFC3339, t)
	if err != nil {
		panic(err)
	}
	return tm
}

func TestCorsConfig(t *testing.T) {
	tests := []struct {
		origin string
		want   string
	}{
		{origin: "https://evilorigin.com", want: ""},
		{origin: "http://evilorigin.com", want: ""},
		{origin: "https://orders.bookdepot.com", want: "https://orders.bookdepot.com"},
		{origin: "http://orders.bookdepot.com", want: "http://orders.bookdepot.com"},
		{origin: "https://bookdepot.com", want: ""},
		{origin: "https://orders.bookdepot.com.evil.com", want: ""},
		{origin: "http://localhost:8080", want: "http://localhost:8080"},
		{origin: "http://localhost:3000", want: "http://localhost:3000"},
		{origin: "https://localhost:8080", want: "https://localhost:8080"},
	}

	r := getRouter()
	ts := httptest.NewServer(r)
	defer ts.Close()

	client := http.DefaultClient
	url := ts.URL + api.ApiPath + api.StockPath

	for _, test := range tests {
		req, err := http.NewRequest("GET", url, nil)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Add("Origin", test.origin)

		res, err := client.Do(req)
		if err != nil {
			t.Fatal(err)
		}

		got := res.Header.Get("Access-Control-Allow-Origin")
		if got != test.want {
			t.Errorf("failed cors test got=[%v] want=[%v]", got, test.want)
		}
	}
}

func TestHealth(t *testing.T) {
	r := getRouter()
	ts := httptest.NewServer(r)
	defer ts.Close()

	res, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}

	if res.StatusCode != http.StatusOK {
		t.Errorf("status code got=%d want=%d", res.StatusCode, http.StatusOK)
	}
}

func TestApiRequiresAuthentication(t *testing.T) {
	r := getRouter()
	ts := httptest.NewServer(r)
	defer ts.Close()

	tests := []struct {
		name string
		auth []testutil.RequestOptions
		want int
	}{
		{name: "missing credentials are rejected", want: http.StatusUnauthorized},
		{
			name: "unknown users are rejected",
			auth: []testutil.RequestOptions{{Username: "intruder", Password: "letmein"}},
			want: http.StatusUnauthorized,
		},
		{
			name: "known users get through",
			auth: []testutil.RequestOptions{asSchool},
			want: http.StatusOK,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			res := get(ts.URL+api.ApiPath+api.StockPath, t, test.auth...)

			if res.StatusCode != test.want {
				t.Errorf("status code got=%d want=%d", res.StatusCode, test.want)
			}
		})
	}
}

func getRouter() chi.Router {
	cfg := config.LoadDefaults()

	stockSvc := ledger.NewMockService()
	bundleSvc := bundle.NewMockService()
	fulfillSvc := fulfillment.NewMockService()
	usrSvc := user.NewMockUserService()
	usrSvc.LoginFunc = loginFixture

	return api.ConfigureRouter(cfg, &stockSvc, &stockSvc, &bundleSvc, &fulfillSvc, &usrSvc)
}
