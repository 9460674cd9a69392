// Package cli is the docchat terminal client.
package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docchat/internal/version"
)

// Environment variables read as flag defaults.
const (
	EnvServerURL = "DOCCHAT_URL"
	EnvAPIKey    = "DOCCHAT_API_KEY"
)

type rootOptions struct {
	server  string
	apiKey  string
	timeout time.Duration
	retries int
}

func (o *rootOptions) client() *Client {
	return NewClient(o.server, o.apiKey, o.retries, o.timeout)
}

// NewRootCmd builds the docchat-cli command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "docchat-cli",
		Short:         "Chat with and search the document assistant",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv(EnvServerURL)
	if server == "" {
		server = "http://localhost:8080"
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", server, "docchat API base URL")
	cmd.PersistentFlags().StringVar(&opts.apiKey, "api-key", os.Getenv(EnvAPIKey), "docchat API key")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-request timeout")
	cmd.PersistentFlags().IntVar(&opts.retries, "retries", 2, "retries for requests that got no answer from the server")

	cmd.AddCommand(newSearchCmd(opts), newChatCmd(opts))
	return cmd
}

// Describe turns an error into the line shown to the user.
func Describe(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RateLimited() {
		return "search quota exhausted: " + apiErr.Message
	}
	return fmt.Sprintf("error: %v", err)
}
