package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ayusman/signbridge/internal/detector"
	"github.com/ayusman/signbridge/internal/store"
)

var signsCmd = &cobra.Command{
	Use:   "signs",
	Short: "Manage the sign templates used by the prediction service",
}

var signsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sign templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		signs, err := st.Signs().List()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(signs) == 0 {
			fmt.Fprintln(out, "No signs stored.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tLABEL\tCREATED")
		fmt.Fprintln(w, "--\t-----\t-------")
		for _, sg := range signs {
			fmt.Fprintf(w, "%s\t%s\t%s\n", sg.ID, sg.Label, sg.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var signsAddCmd = &cobra.Command{
	Use:   "add <label> <landmarks.json>",
	Short: "Store a template from a JSON array of 63 landmark values",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := strings.TrimSpace(args[0])
		if label == "" {
			return fmt.Errorf("label is required")
		}

		landmarks, err := readLandmarks(args[1])
		if err != nil {
			return err
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		sg := &store.Sign{ID: uuid.New().String(), Label: label, Landmarks: landmarks}
		if err := st.Signs().Create(sg); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), sg.ID)
		return nil
	},
}

var signsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored sign template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		return st.Signs().Delete(args[0])
	},
}

func init() {
	signsCmd.AddCommand(signsListCmd, signsAddCmd, signsDeleteCmd)
	rootCmd.AddCommand(signsCmd)
}

// readLandmarks reads a landmark vector from a JSON file. "-" reads stdin.
func readLandmarks(path string) ([]float64, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read landmarks: %w", err)
	}

	var landmarks []float64
	if err := json.Unmarshal(data, &landmarks); err != nil {
		return nil, fmt.Errorf("failed to parse landmarks: %w", err)
	}
	if len(landmarks) != detector.VectorLen {
		return nil, fmt.Errorf("expected %d values, got %d", detector.VectorLen, len(landmarks))
	}
	return landmarks, nil
}
