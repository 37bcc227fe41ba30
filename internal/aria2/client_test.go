package aria2

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type recordedCall struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

func newRPCServer(t *testing.T, result any, rpcErr *RPCError) (*httptest.Server, *recordedCall) {
	t.Helper()
	var last recordedCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&last); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := map[string]any{"jsonrpc": "2.0", "id": "skiff"}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func newTestClient(t *testing.T, url, secret string) *Client {
	t.Helper()
	c, err := NewClient(ClientOpts{RPCURL: url, Secret: secret})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestAddURI_SecretFirst(t *testing.T) {
	srv, last := newRPCServer(t, "gid123", nil)
	c := newTestClient(t, srv.URL, "s3cret")

	gid, err := c.AddURI(context.Background(), "https://x.test/file.iso")
	if err != nil {
		t.Fatalf("add uri: %v", err)
	}
	if gid != "gid123" {
		t.Errorf("gid = %q", gid)
	}
	if last.Method != "aria2.addUri" {
		t.Errorf("method = %q", last.Method)
	}
	if len(last.Params) != 2 {
		t.Fatalf("params = %v", last.Params)
	}
	if last.Params[0] != "token:s3cret" {
		t.Errorf("first param = %v, want the secret token", last.Params[0])
	}
	uris, ok := last.Params[1].([]any)
	if !ok || len(uris) != 1 || uris[0] != "https://x.test/file.iso" {
		t.Errorf("uri param = %v", last.Params[1])
	}
}

func TestAddURI_NoSecret(t *testing.T) {
	srv, last := newRPCServer(t, "gid123", nil)
	c := newTestClient(t, srv.URL, "")

	if _, err := c.AddURI(context.Background(), "https://x.test/f"); err != nil {
		t.Fatalf("add uri: %v", err)
	}
	if len(last.Params) != 1 {
		t.Errorf("params = %v, want uri list only", last.Params)
	}
}

func TestStat(t *testing.T) {
	srv, last := newRPCServer(t, map[string]string{
		"downloadSpeed": "1048576",
		"numActive":     "2",
		"numWaiting":    "0",
		"numStopped":    "5",
	}, nil)
	c := newTestClient(t, srv.URL, "s3cret")

	stat, err := c.Stat(context.Background())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if stat.DownloadSpeed != "1048576" || stat.NumActive != "2" {
		t.Errorf("stat = %+v", stat)
	}
	if last.Method != "aria2.getGlobalStat" {
		t.Errorf("method = %q", last.Method)
	}
	// Secret-only calls still carry the token as the sole parameter.
	if len(last.Params) != 1 || last.Params[0] != "token:s3cret" {
		t.Errorf("params = %v", last.Params)
	}
}

func TestActive(t *testing.T) {
	srv, _ := newRPCServer(t, []map[string]any{
		{
			"gid":             "g1",
			"status":          "active",
			"totalLength":     "1000",
			"completedLength": "250",
			"downloadSpeed":   "100",
			"files":           []map[string]string{{"path": "/downloads/file.iso"}},
		},
	}, nil)
	c := newTestClient(t, srv.URL, "")

	tasks, err := c.Active(context.Background())
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(tasks) != 1 || tasks[0].GID != "g1" || tasks[0].Files[0].Path != "/downloads/file.iso" {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestRPCError(t *testing.T) {
	srv, _ := newRPCServer(t, nil, &RPCError{Code: 1, Message: "Unauthorized"})
	c := newTestClient(t, srv.URL, "wrong")

	_, err := c.AddURI(context.Background(), "https://x.test/f")
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("err = %v, want *RPCError", err)
	}
	if rpcErr.Code != 1 || rpcErr.Message != "Unauthorized" {
		t.Errorf("rpc error = %+v", rpcErr)
	}
}

func TestTransportError(t *testing.T) {
	srv, _ := newRPCServer(t, "gid", nil)
	c := newTestClient(t, srv.URL, "")
	srv.Close()

	if _, err := c.Stat(context.Background()); err == nil {
		t.Fatal("expected transport error")
	}
}
