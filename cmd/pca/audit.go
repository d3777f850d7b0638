package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/remiblancher/private-ca/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log management",
	Long: `Commands for managing and verifying audit logs.

The audit log provides a tamper-evident record of all CA operations.
Each event is cryptographically chained using SHA-256 hashes.

Examples:
  # Verify audit log integrity
  pca audit verify --log /var/log/pca/audit.jsonl

  # Show last 10 events
  pca audit tail --log /var/log/pca/audit.jsonl -n 10`,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify audit log integrity",
	Long: `Verify the cryptographic hash chain of an audit log file.

Each event in the log contains:
  - hash_prev: SHA-256 hash of the previous event
  - hash: SHA-256 hash of the current event

The chain starts with hash_prev="sha256:genesis" for the first event.

If the chain is broken (events modified, deleted, or inserted),
this command will report the location and nature of the tampering.`,
	RunE: runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show recent audit events",
	Long:  `Display the most recent audit events from the log file.`,
	RunE:  runAuditTail,
}

var (
	auditLogFile  string
	auditTailNum  int
	auditShowJSON bool
)

func init() {
	auditVerifyCmd.Flags().StringVar(&auditLogFile, "log", "", "Path to audit log file (required)")
	_ = auditVerifyCmd.MarkFlagRequired("log")

	auditTailCmd.Flags().StringVar(&auditLogFile, "log", "", "Path to audit log file (required)")
	_ = auditTailCmd.MarkFlagRequired("log")
	auditTailCmd.Flags().IntVarP(&auditTailNum, "num", "n", 10, "Number of events to show")
	auditTailCmd.Flags().BoolVar(&auditShowJSON, "json", false, "Output as JSON")

	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	fmt.Printf("Verifying audit log: %s\n\n", auditLogFile)

	count, err := audit.VerifyChain(auditLogFile)
	if err != nil {
		fmt.Printf("VERIFICATION FAILED\n")
		fmt.Printf("  Valid events: %d\n", count)
		fmt.Printf("  Error: %s\n", err)
		return fmt.Errorf("audit log verification failed: %w", err)
	}

	fmt.Printf("VERIFICATION PASSED\n")
	fmt.Printf("  Total events: %d\n", count)
	fmt.Printf("  Hash chain: VALID\n")

	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(auditLogFile)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	if len(data) == 0 {
		fmt.Println("Audit log is empty")
		return nil
	}

	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}

	start := len(lines) - auditTailNum
	if start < 0 {
		start = 0
	}

	for _, line := range lines[start:] {
		if auditShowJSON {
			fmt.Println(line)
			continue
		}

		var event audit.Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			fmt.Println(line)
			continue
		}
		fmt.Printf("%s  %-20s %-8s %s\n",
			event.Timestamp,
			event.EventType,
			event.Result,
			eventSummary(&event),
		)
	}
	return nil
}

// eventSummary builds a one-line description of the event object.
func eventSummary(event *audit.Event) string {
	var parts []string
	if event.Object.Name != "" {
		parts = append(parts, event.Object.Name)
	}
	if event.Object.Serial != "" {
		parts = append(parts, "serial="+event.Object.Serial)
	}
	if event.Object.Subject != "" {
		parts = append(parts, event.Object.Subject)
	}
	if event.Context.Reason != "" {
		parts = append(parts, "("+event.Context.Reason+")")
	}
	return strings.Join(parts, " ")
}
