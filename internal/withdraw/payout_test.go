package withdraw

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/chisomo-dev/coachpay/internal/config"
)

func newTestClient(url string) *Client {
	return NewClient(config.PayChanguConfig{APIURL: url, SecretKey: "sk_test"}, zap.NewNop())
}

const operatorList = `{
	"status": "success",
	"data": [
		{"ref_id": "op-airtel-mw", "name": "Airtel Money", "country": "Malawi"},
		{"ref_id": "op-tnm-mw", "name": "TNM Mpamba", "country": "Malawi"},
		{"ref_id": "op-airtel-zm", "name": "Airtel Money", "country": "Zambia"}
	]
}`

func payoutSuccess(ref, trans string) string {
	return `{"status": "success", "data": {"transaction": {"status": "success", "ref_id": "` + ref + `", "trans_id": "` + trans + `"}}}`
}

func TestExecutePayout(t *testing.T) {
	t.Run("resolves the operator from the live list", func(t *testing.T) {
		var gotBody payoutRequest
		var gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/mobile-money":
				w.Write([]byte(operatorList))
			case "/mobile-money/payouts/initialize":
				gotAuth = r.Header.Get("Authorization")
				json.NewDecoder(r.Body).Decode(&gotBody)
				w.Write([]byte(payoutSuccess("ref-1", "trans-1")))
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		res, err := newTestClient(srv.URL).Execute(context.Background(), "991234567", 10000, "wr-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Ref != "ref-1" || res.TransID != "trans-1" {
			t.Errorf("result = %+v", res)
		}
		if gotAuth != "Bearer sk_test" {
			t.Errorf("auth header = %q", gotAuth)
		}
		if gotBody.OperatorRefID != "op-airtel-mw" {
			t.Errorf("operator = %q, want op-airtel-mw", gotBody.OperatorRefID)
		}
		if gotBody.Mobile != "991234567" || gotBody.Amount != 10000 || gotBody.Currency != "MWK" {
			t.Errorf("payout body = %+v", gotBody)
		}
		if gotBody.ChargeID != "wr-1" {
			t.Errorf("charge id = %q, want wr-1", gotBody.ChargeID)
		}
	})

	t.Run("falls back to the static operator map when the lookup fails", func(t *testing.T) {
		var gotOperator string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/mobile-money":
				w.WriteHeader(http.StatusInternalServerError)
			case "/mobile-money/payouts/initialize":
				var body payoutRequest
				json.NewDecoder(r.Body).Decode(&body)
				gotOperator = body.OperatorRefID
				w.Write([]byte(payoutSuccess("ref-2", "trans-2")))
			}
		}))
		defer srv.Close()

		c := newTestClient(srv.URL)
		if _, err := c.Execute(context.Background(), "991234567", 5000, "wr-2"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotOperator != "AIRTEL_MW" {
			t.Errorf("operator = %q, want AIRTEL_MW", gotOperator)
		}

		if _, err := c.Execute(context.Background(), "881234567", 5000, "wr-3"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotOperator != "TNM_MW" {
			t.Errorf("operator = %q, want TNM_MW", gotOperator)
		}
	})

	t.Run("rejects when only the outer status reports success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/mobile-money" {
				w.Write([]byte(operatorList))
				return
			}
			w.Write([]byte(`{"status": "success", "data": {"transaction": {"status": "failed"}}}`))
		}))
		defer srv.Close()

		if _, err := newTestClient(srv.URL).Execute(context.Background(), "991234567", 10000, "wr-4"); err == nil {
			t.Fatal("expected error for failed nested transaction")
		}
	})

	t.Run("rejects non-2xx payout responses", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/mobile-money" {
				w.Write([]byte(operatorList))
				return
			}
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"status": "failed", "message": "insufficient float"}`))
		}))
		defer srv.Close()

		if _, err := newTestClient(srv.URL).Execute(context.Background(), "991234567", 10000, "wr-5"); err == nil {
			t.Fatal("expected error for 422 response")
		}
	})

	t.Run("fails for numbers with no operator mapping", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		if _, err := newTestClient(srv.URL).Execute(context.Background(), "791234567", 10000, "wr-6"); err == nil {
			t.Fatal("expected error for unmapped prefix")
		}
	})
}

func TestRedactMobile(t *testing.T) {
	if got := redactMobile("991234567"); got != "*******67" {
		t.Errorf("redacted = %q", got)
	}
	if got := redactMobile("9"); got != "**" {
		t.Errorf("redacted short = %q", got)
	}
}
