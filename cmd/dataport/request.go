package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/brizzai/dataport-cli/internal/requester"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// apiResponse is the json/yaml rendering of a raw API response.
type apiResponse struct {
	Status    int         `json:"status" yaml:"status"`
	RequestID string      `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Body      interface{} `json:"body,omitempty" yaml:"body,omitempty"`
}

func newRequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Send an authenticated request to the DataPort API",
		Long: `Send an authenticated request. PATH is joined onto the API base URL
(e.g. /data-import/imports/) unless it is an absolute URL.

A rejected access token is refreshed once and the request retried.`,
		Example: `  dataport request GET /data-import/imports/ -q status=completed
  dataport request POST /data-import/imports/ -d '{"name":"q3"}'
  dataport request PATCH /users/me/ -d @profile.json`,
		Args: cobra.ExactArgs(2),
		RunE: runRequest,
	}
	cmd.Flags().StringP("data", "d", "", "Request body; @file reads it from a file, @- from stdin")
	cmd.Flags().StringArrayP("header", "H", nil, "Extra header as 'Name: value' (repeatable)")
	cmd.Flags().StringArrayP("query", "q", nil, "Query parameter as key=value (repeatable)")
	return cmd
}

func runRequest(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(cmd, args[0], args[1])
	if err != nil {
		return err
	}

	return withSession(cmd, func(ctx context.Context, a *app) error {
		resp, err := a.Manager.Do(ctx, req)
		if err != nil {
			return err
		}

		out := apiResponse{Status: resp.StatusCode, RequestID: resp.RequestID, Body: decodeBody(resp.Body)}
		if err := render(cmd.OutOrStdout(), formatOf(cmd), out, func(w io.Writer) error {
			return printBody(w, resp)
		}); err != nil {
			return err
		}
		if !resp.IsSuccess() {
			return fmt.Errorf("request failed with status %d", resp.StatusCode)
		}
		return nil
	})
}

func buildRequest(cmd *cobra.Command, method, path string) (*requester.Request, error) {
	method = strings.ToUpper(method)
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodHead, http.MethodOptions:
	default:
		return nil, fmt.Errorf("unsupported method %q", method)
	}

	headerFlags, _ := cmd.Flags().GetStringArray("header")
	headers, err := parseHeaders(headerFlags)
	if err != nil {
		return nil, err
	}
	queryFlags, _ := cmd.Flags().GetStringArray("query")
	query, err := parseQuery(queryFlags)
	if err != nil {
		return nil, err
	}
	data, _ := cmd.Flags().GetString("data")
	body, err := readBody(data, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}

	req := &requester.Request{
		Method:  method,
		URL:     path,
		Query:   query,
		Headers: headers,
		Body:    body,
	}
	if ct, ok := headers["Content-Type"]; ok {
		req.ContentType = ct
		delete(headers, "Content-Type")
	}
	return req, nil
}

func parseHeaders(values []string) (map[string]string, error) {
	headers := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", v)
		}
		if strings.EqualFold(name, "Authorization") {
			return nil, fmt.Errorf("the Authorization header is managed by the session")
		}
		headers[http.CanonicalHeaderKey(name)] = strings.TrimSpace(value)
	}
	return headers, nil
}

func parseQuery(values []string) (url.Values, error) {
	if len(values) == 0 {
		return nil, nil
	}
	query := url.Values{}
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid query parameter %q, expected key=value", v)
		}
		query.Add(key, value)
	}
	return query, nil
}

// readBody resolves the --data flag: inline text, @file or @- for stdin.
func readBody(data string, stdin io.Reader) ([]byte, error) {
	switch {
	case data == "":
		return nil, nil
	case data == "@-":
		return io.ReadAll(stdin)
	case strings.HasPrefix(data, "@"):
		body, err := os.ReadFile(data[1:])
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		return body, nil
	default:
		return []byte(data), nil
	}
}

func decodeBody(body []byte) interface{} {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	return v
}

func printBody(w io.Writer, resp *requester.Response) error {
	if !resp.IsSuccess() {
		pterm.Warning.WithWriter(w).Printfln("HTTP %d (request %s)", resp.StatusCode, resp.RequestID)
	}
	if len(resp.Body) == 0 {
		return nil
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, resp.Body, "", "  "); err == nil {
		pretty.WriteByte('\n')
		_, err = pretty.WriteTo(w)
		return err
	}
	_, err := w.Write(resp.Body)
	return err
}
