package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// serverCall is one request against a running server's HTTP surface.
type serverCall struct {
	method  string
	path    string
	timeout time.Duration
}

var (
	metricsCall = serverCall{method: http.MethodGet, path: "/metrics", timeout: 5 * time.Second}
	flushCall   = serverCall{method: http.MethodPost, path: "/admin/v1/flush", timeout: 10 * time.Second}
)

func metricsCmd(args []string) { runServerCall("metrics", metricsCall, args) }

func flushCmd(args []string) { runServerCall("flush", flushCall, args) }

// runServerCall parses -url, performs call and copies the response body to
// stdout. A non-2xx status exits 1 after printing the body.
func runServerCall(name string, call serverCall, args []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	body, status, err := call.do(*baseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	fmt.Print(body)
	if status/100 != 2 {
		fmt.Fprintf(os.Stderr, "%s: server answered %d\n", name, status)
		os.Exit(1)
	}
}

func (c serverCall) do(baseURL string) (string, int, error) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + c.path
	req, err := http.NewRequest(c.method, u, nil)
	if err != nil {
		return "", 0, err
	}
	cl := &http.Client{Timeout: c.timeout}
	resp, err := cl.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(b), resp.StatusCode, nil
}
