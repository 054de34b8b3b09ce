package mid_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/utxoledger/ledger/business/sys/validate"
	"github.com/utxoledger/ledger/business/web/errs"
	"github.com/utxoledger/ledger/business/web/mid"
	"github.com/utxoledger/ledger/foundation/web"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Middleware(t *testing.T) {
	log := zap.NewNop().Sugar()

	app := web.NewApp(
		make(chan os.Signal, 1),
		mid.Logger(log),
		mid.Errors(log),
		mid.Cors("*"),
		mid.Panics(),
	)

	app.Handle(http.MethodGet, "v1", "/ok/:name", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, map[string]string{"name": web.Param(r, "name")}, http.StatusOK)
	})
	app.Handle(http.MethodGet, "v1", "/trusted", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errs.NewTrusted(errors.New("bad input"), http.StatusBadRequest)
	})
	app.Handle(http.MethodGet, "v1", "/fields", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return validate.Check(struct {
			To string `json:"to" validate:"required"`
		}{})
	})
	app.Handle(http.MethodGet, "v1", "/panic", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		panic("boom")
	})

	type table struct {
		path   string
		status int
		check  func(body map[string]any) bool
	}

	tt := []table{
		{"/v1/ok/bill", http.StatusOK, func(b map[string]any) bool { return b["name"] == "bill" }},
		{"/v1/trusted", http.StatusBadRequest, func(b map[string]any) bool { return b["error"] == "bad input" }},
		{"/v1/fields", http.StatusBadRequest, func(b map[string]any) bool { return b["fields"] != nil }},
		{"/v1/panic", http.StatusInternalServerError, func(b map[string]any) bool { return b["error"] == http.StatusText(http.StatusInternalServerError) }},
	}

	t.Log("Given the need to handle requests through the middleware.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen calling %s.", testID, tst.path)
			{
				r := httptest.NewRequest(http.MethodGet, tst.path, nil)
				w := httptest.NewRecorder()
				app.ServeHTTP(w, r)

				if w.Code != tst.status {
					t.Fatalf("\t%s\tTest %d:\tShould get status %d, got %d.", failed, testID, tst.status, w.Code)
				}
				t.Logf("\t%s\tTest %d:\tShould get status %d.", success, testID, tst.status)

				var body map[string]any
				if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to decode the body: %v", failed, testID, err)
				}

				if !tst.check(body) {
					t.Fatalf("\t%s\tTest %d:\tShould get the expected body, got %v.", failed, testID, body)
				}
				t.Logf("\t%s\tTest %d:\tShould get the expected body.", success, testID)

				if w.Header().Get("Access-Control-Allow-Origin") != "*" {
					t.Fatalf("\t%s\tTest %d:\tShould set the cors headers.", failed, testID)
				}
			}
		}
	}
}
