// Package main provides a command line client for the address book service.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL, username and password are set by the persistent flags.
	serverURL string
	username  string
	password  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "address-book",
	Short: "Client for the address book service",
	Long: `address-book talks to a running address book service. All commands except
register authenticate with the given user and password.

Example:
  address-book register --user ada --password analytical
  address-book list --user ada --password analytical`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", "http://localhost:8080", "base URL of the service")
	rootCmd.PersistentFlags().StringVarP(&username, "user", "u", os.Getenv("ADDRESS_BOOK_USER"), "username")
	rootCmd.PersistentFlags().StringVarP(&password, "password", "p", os.Getenv("ADDRESS_BOOK_PASSWORD"), "password")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(benchCmd)
}

// apiError is returned for responses outside the 2xx range.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("service answered %d: %s", e.status, e.body)
}

// call sends the request body as JSON and decodes a successful response into result, which may
// be nil. It returns the round trip time.
func call(method string, path string, body any, result any) (time.Duration, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, serverURL+path, bodyReader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if username != "" {
		req.SetBasicAuth(username, password)
	}
	before := time.Now()
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, fmt.Errorf("read response body: %w", err)
	}
	duration := time.Since(before)
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return duration, &apiError{status: res.StatusCode, body: string(bytes.TrimSpace(resBody))}
	}
	if result != nil {
		if err := json.Unmarshal(resBody, result); err != nil {
			return duration, fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return duration, nil
}

func printJSON(value any) error {
	output, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(output))
	return nil
}
