package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/blockedu/blockedu/internal/hashing"
	"github.com/blockedu/blockedu/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	authToken string
	cfgFile   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "blockeductl",
	Short: "BlockEdu ledger and verification CLI",
	Long: `blockeductl is the command-line interface for a BlockEdu server.

It lets registrars issue academic records, inspect the transaction ledger,
and run integrity verification without touching the web UI.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.blockedu")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
		if authToken == "" {
			authToken = viper.GetString("token")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.blockedu/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "BlockEdu server URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "session token for authenticated operations")

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(issueCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() (*client.Client, error) {
	opts := []client.Option{}
	if authToken != "" {
		opts = append(opts, client.WithBearerToken(authToken))
	}
	return client.New(serverURL, opts...)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── verify ───────────────────────────────────────────────────────────────────

var (
	verifySubject string
	verifyFormat  string
)

var verifyCmd = &cobra.Command{
	Use:   "verify [record-id]",
	Short: "Verify record integrity against the ledger",
	Long: `Verify re-computes a record's content hash and compares it against the
anchored ledger hash.

Verify a single record:

  blockeductl verify 0d5ad334-6c7e-4a43-a8d7-7e6f4028b2f1

Verify every record a subject holds:

  blockeductl verify --subject STU-042`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifySubject, "subject", "", "verify all records for this subject entity")
	verifyCmd.Flags().StringVar(&verifyFormat, "format", "text", "Output format: text or json")
}

func runVerify(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (verifySubject == "") {
		return fmt.Errorf("provide exactly one of a record id or --subject")
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if verifySubject != "" {
		report, err := c.VerifySubject(ctx, verifySubject)
		if err != nil {
			return err
		}
		if verifyFormat == "json" {
			return printJSON(report)
		}
		fmt.Printf("Subject:  %s\n", report.SubjectID)
		fmt.Printf("Records:  %d\n", report.Total)
		fmt.Printf("Verdict:  %s\n", report.Message)
		if report.TamperedCount > 0 {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RECORD\tVERIFIED\tREASON")
			for _, r := range report.Results {
				fmt.Fprintf(w, "%s\t%t\t%s\n", r.RecordID, r.Verified, r.Reason)
			}
			return w.Flush()
		}
		return nil
	}

	res, err := c.VerifyRecord(ctx, args[0])
	if err != nil {
		return err
	}
	if verifyFormat == "json" {
		return printJSON(res)
	}
	fmt.Printf("Record:      %s\n", res.RecordID)
	fmt.Printf("Verified:    %t\n", res.Verified)
	if res.Tampered {
		fmt.Printf("Tampered:    true\n")
	}
	if res.Unanchored {
		fmt.Printf("Unanchored:  true (no ledger transaction found)\n")
	}
	if res.Reason != "" {
		fmt.Printf("Reason:      %s\n", res.Reason)
	}
	if res.TransactionID != "" {
		fmt.Printf("Transaction: %s\n", res.TransactionID)
		fmt.Printf("Block:       %d\n", res.BlockNumber)
	}
	return nil
}

// ── issue ────────────────────────────────────────────────────────────────────

var (
	issueSubject     string
	issueType        string
	issueTitle       string
	issueDescription string
	issuePayloadFile string
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a new academic record and anchor it to the ledger",
	Example: `  blockeductl issue --subject STU-042 --type transcript \
    --title "Semester 1 Transcript" --payload transcript.json --token $TOKEN`,
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := os.ReadFile(issuePayloadFile)
		if err != nil {
			return fmt.Errorf("read payload file: %w", err)
		}
		if !json.Valid(payload) {
			return fmt.Errorf("payload file %s is not valid JSON", issuePayloadFile)
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		result, err := c.IssueRecord(context.Background(), client.IssueRequest{
			SubjectID:   issueSubject,
			Type:        issueType,
			Title:       issueTitle,
			Description: issueDescription,
			Payload:     payload,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Record issued: %s\n", result.Record.ID)
		fmt.Printf("Content hash:  %s\n", result.Record.ContentHash)
		if result.Transaction != nil {
			fmt.Printf("Transaction:   %s (block %d)\n",
				result.Transaction.TransactionID, result.Transaction.BlockNumber)
		}
		return nil
	},
}

func init() {
	issueCmd.Flags().StringVar(&issueSubject, "subject", "", "subject entity ID (required)")
	issueCmd.Flags().StringVar(&issueType, "type", "transcript", "record type: transcript, certificate, marksheet, degree, other")
	issueCmd.Flags().StringVar(&issueTitle, "title", "", "record title (required)")
	issueCmd.Flags().StringVar(&issueDescription, "description", "", "record description")
	issueCmd.Flags().StringVar(&issuePayloadFile, "payload", "", "path to the JSON payload file (required)")
	_ = issueCmd.MarkFlagRequired("subject")
	_ = issueCmd.MarkFlagRequired("title")
	_ = issueCmd.MarkFlagRequired("payload")
}

// ── ledger ───────────────────────────────────────────────────────────────────

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the transaction ledger",
}

var ledgerTxCmd = &cobra.Command{
	Use:   "tx <transaction-id>",
	Short: "Show one ledger transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		entry, err := c.GetTransaction(context.Background(), args[0])
		if err != nil {
			return err
		}
		return printJSON(entry)
	},
}

var ledgerHistoryCmd = &cobra.Command{
	Use:   "history <record-id>",
	Short: "Show every anchoring transaction for a record, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		entries, err := c.LedgerHistory(context.Background(), args[0])
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TRANSACTION\tACTION\tBLOCK\tTIMESTAMP")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				e.TransactionID, e.Action, e.BlockNumber, e.Timestamp.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

func init() {
	ledgerCmd.AddCommand(ledgerTxCmd)
	ledgerCmd.AddCommand(ledgerHistoryCmd)
}

// ── hash ─────────────────────────────────────────────────────────────────────

var hashAlg string

var hashCmd = &cobra.Command{
	Use:   "hash <payload.json>",
	Short: "Compute the canonical content hash of a JSON document locally",
	Long: `Hash canonicalizes a JSON document (sorted keys, stable number forms) and
prints its hex digest. Useful for checking what hash a payload would anchor
as, without contacting a server.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}

		h, err := hashing.New(hashAlg, hashing.CanonV1)
		if err != nil {
			return err
		}
		digest, err := h.Hash(doc)
		if err != nil {
			return err
		}
		fmt.Println(digest)
		return nil
	},
}

func init() {
	hashCmd.Flags().StringVar(&hashAlg, "alg", hashing.AlgSHA256, "digest algorithm: sha256 or sha3-256")
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the blockeductl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("blockeductl %s\n", version)
	},
}
