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
	serverURL string
	client    = &http.Client{Timeout: 60 * time.Second}
)

func main() {
	root := &cobra.Command{
		Use:   "ragctl",
		Short: "Operate the context-engine ingestion and retrieval APIs",
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9020", "context-engine base URL")

	root.AddCommand(newIngestCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newDeleteCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newIngestCmd() *cobra.Command {
	var sync bool

	cmd := &cobra.Command{
		Use:   "ingest <document.json> [more.json...]",
		Short: "Submit document JSON files for indexing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/v1/ingest-jobs"
			if sync {
				path = "/v1/documents"
			}

			for _, file := range args {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", file, err)
				}
				if !json.Valid(data) {
					return fmt.Errorf("%s is not valid JSON", file)
				}

				body, status, err := postJSON(path, data)
				if err != nil {
					return fmt.Errorf("failed to submit %s: %w", file, err)
				}
				if status != http.StatusOK && status != http.StatusAccepted {
					return fmt.Errorf("%s: server returned %d: %s", file, status, body)
				}
				fmt.Printf("%s: %s\n", file, body)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sync, "sync", false, "index synchronously instead of enqueueing a job")
	return cmd
}

func newQueryCmd() *cobra.Command {
	var tenantID, product, version, language string

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Retrieve context for a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := map[string]string{}
			if tenantID != "" {
				filters["tenant_id"] = tenantID
			}
			if product != "" {
				filters["product"] = product
			}
			if version != "" {
				filters["version"] = version
			}
			if language != "" {
				filters["language"] = language
			}

			payload := map[string]any{"query": args[0]}
			if len(filters) > 0 {
				payload["filters"] = filters
			}
			data, err := json.Marshal(payload)
			if err != nil {
				return err
			}

			body, status, err := postJSON("/v1/retrieve", data)
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return fmt.Errorf("server returned %d: %s", status, body)
			}

			var resp struct {
				ContextText string `json:"context_text"`
				Sources     []struct {
					Tag        string `json:"tag"`
					DocumentID string `json:"document_id"`
					Title      string `json:"title"`
					Section    string `json:"section"`
					URL        string `json:"url"`
				} `json:"sources"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}

			fmt.Println(resp.ContextText)
			if len(resp.Sources) > 0 {
				fmt.Println("\nSources:")
				for _, s := range resp.Sources {
					fmt.Printf("  [%s] %s | %s (%s)\n", s.Tag, s.Title, s.Section, s.DocumentID)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "filter by tenant ID")
	cmd.Flags().StringVar(&product, "product", "", "filter by product")
	cmd.Flags().StringVar(&version, "version", "", "filter by version")
	cmd.Flags().StringVar(&language, "language", "", "filter by language")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the status of an ingestion job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get(serverURL + "/v1/ingest-jobs/" + args[0])
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server returned %d: %s", resp.StatusCode, body)
			}
			fmt.Println(string(body))
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Remove a document and its chunks from the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequest(http.MethodDelete, serverURL+"/v1/documents/"+args[0], nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server returned %d: %s", resp.StatusCode, body)
			}
			fmt.Println(string(body))
			return nil
		},
	}
}

func postJSON(path string, data []byte) ([]byte, int, error) {
	resp, err := client.Post(serverURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
