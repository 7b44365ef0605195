package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, struct {
		A int `json:"a"`
	}{A: 1}); err != nil {
		t.Fatalf("printJSON failed: %v", err)
	}

	expected := "{\n  \"a\": 1\n}\n"
	if buf.String() != expected {
		t.Fatalf("unexpected json output:\n%s", buf.String())
	}
}

func TestTransactionRegister(t *testing.T) {
	var (
		gotBody map[string]any
		gotKey  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/transactions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotKey = r.Header.Get("Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"transaction_id":"tx-42"}`))
	}))
	defer srv.Close()

	out, err := execute(t, "--url", srv.URL, "transaction", "register",
		"--date", "2024-05-10", "--amount", "100.50", "--type", "credit",
		"--description", "sale", "--idempotency-key", "k-1")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	if strings.TrimSpace(out) != "tx-42" {
		t.Fatalf("expected transaction id, got %q", out)
	}
	if gotKey != "k-1" {
		t.Fatalf("expected idempotency key header, got %q", gotKey)
	}
	if gotBody["amount"] != 100.5 || gotBody["type"] != "credit" || gotBody["date"] != "2024-05-10" {
		t.Fatalf("unexpected body %+v", gotBody)
	}
}

func TestTransactionRegister_InvalidAmount(t *testing.T) {
	_, err := execute(t, "--url", "http://127.0.0.1:0", "transaction", "register", "--amount", "ten", "--type", "debit")
	if err == nil || !strings.Contains(err.Error(), "invalid amount") {
		t.Fatalf("expected invalid amount error, got %v", err)
	}
}

func TestTransactionRegister_ReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid transaction","message":"amount must be positive"}`))
	}))
	defer srv.Close()

	_, err := execute(t, "--url", srv.URL, "transaction", "register", "--amount", "1", "--type", "debit")
	if err == nil || !strings.Contains(err.Error(), "amount must be positive") || !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected API error to surface, got %v", err)
	}
}

func TestBalanceGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/daily-balances/2024-05-10":
			_, _ = w.Write([]byte(`{"date":"2024-05-10","total_credit":"100","total_debit":"30","balance":"70"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"failed to get daily balance","message":"daily balance not found"}`))
		}
	}))
	defer srv.Close()

	out, err := execute(t, "--balance-url", srv.URL, "balance", "get", "2024-05-10")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if !strings.Contains(out, `"balance": "70"`) {
		t.Fatalf("unexpected output %s", out)
	}

	_, err = execute(t, "--balance-url", srv.URL, "balance", "get", "2024-05-11")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected not found error, got %v", err)
	}

	_, err = execute(t, "--balance-url", srv.URL, "balance", "get", "yesterday")
	if err == nil || !strings.Contains(err.Error(), "invalid date") {
		t.Fatalf("expected date validation error, got %v", err)
	}
}

func TestTransactionGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/transactions/tx-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"tx-1","date":"2024-05-10T00:00:00Z","amount":"5","type":"debit","description":"fee","created_at":"2024-05-10T10:00:00Z"}`))
	}))
	defer srv.Close()

	out, err := execute(t, "--url", srv.URL, "transaction", "get", "tx-1")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if !strings.Contains(out, `"type": "debit"`) {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	for _, sub := range []string{"up", "down"} {
		_, err := execute(t, "migrate", sub)
		if err == nil || !strings.Contains(err.Error(), "database URL is required") {
			t.Fatalf("migrate %s: expected missing URL error, got %v", sub, err)
		}
	}
}

func TestMigrate_ReportsMigratorErrors(t *testing.T) {
	for _, sub := range []string{"up", "down"} {
		_, err := execute(t, "migrate", sub, "--database-url", "nosuchdriver://localhost/db", "--path", t.TempDir())
		if err == nil || !strings.Contains(err.Error(), "failed to create migrate instance") {
			t.Fatalf("migrate %s: expected migrator error, got %v", sub, err)
		}
	}
}
