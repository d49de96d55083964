package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sentri/retail-security/internal/adapters/mailfile"
	"github.com/sentri/retail-security/internal/domain"
	"github.com/sentri/retail-security/internal/domain/detection"
	"github.com/spf13/cobra"
)

var (
	scanKind string
	scanEML  string
)

var scanCmd = &cobra.Command{
	Use:   "scan [text...]",
	Short: "Score a link, email, log excerpt or message with the local engine",
	Long: `scan runs the local scoring engine and prints the analysis as JSON.

The input is taken from the arguments, from --eml, or from stdin when
neither is given.`,
	Example: `  sentri scan --kind link https://amaz0n-deals.example/login
  sentri scan --kind email --eml suspicious.eml
  tail -n 50 /var/log/pos/auth.log | sentri scan --kind logs`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanKind, "kind", string(domain.KindText), "Input kind: link, email, logs or text")
	scanCmd.Flags().StringVar(&scanEML, "eml", "", "Read the input from an RFC 5322 .eml file (implies --kind email)")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanEML != "" {
		if cmd.Flags().Changed("kind") && scanKind != string(domain.KindEmail) {
			return errors.New("--eml can only be used with --kind email")
		}
		scanKind = string(domain.KindEmail)
	}

	kind, err := domain.ParseScanKind(scanKind)
	if err != nil {
		return err
	}

	input, err := scanInput(cmd, args)
	if err != nil {
		return err
	}

	analysis, err := detection.NewAnalyzer().Analyze(kind, input)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(analysis)
}

func scanInput(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case scanEML != "":
		text, err := mailfile.NewEMLReader().ReadFile(scanEML)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", scanEML, err)
		}
		return text, nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		raw, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 1<<20))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
}
