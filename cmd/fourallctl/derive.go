package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"fourall/internal/adaptive"
	"fourall/internal/models"
)

var deriveReducedMotion bool

var deriveCmd = &cobra.Command{
	Use:   "derive <profile.json|->",
	Short: "Print the UI configuration derived from a profile document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open profile: %w", err)
			}
			defer f.Close()
			in = f
		}

		var p models.UserProfile
		if err := json.NewDecoder(in).Decode(&p); err != nil {
			return fmt.Errorf("failed to decode profile: %w", err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(adaptive.DeriveUIConfig(p, deriveReducedMotion))
	},
}

func init() {
	deriveCmd.Flags().BoolVar(&deriveReducedMotion, "reduced-motion", false, "Apply the system reduced-motion preference")
}
