package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildJSON bool

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Build the index once and report counts",
	Long: `Load every stored feature row, build the similarity index and print how
many vectors were indexed and how many malformed rows were skipped.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

func init() {
	rebuildCmd.Flags().BoolVar(&rebuildJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(rebuildCmd)
}

func runRebuild(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}

	result, err := svc.Index.Rebuild(cmd.Context())
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	if rebuildJSON {
		data, err := json.MarshalIndent(map[string]any{
			"vector_count":  result.Indexed,
			"skipped_count": result.Skipped,
			"dimension":     result.Dimension,
			"generation":    result.Generation,
			"duration_ms":   result.Duration.Milliseconds(),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	st := newStyles(cmd.OutOrStderr())
	cmd.Println(st.success.Render("Index rebuilt successfully"))
	cmd.Printf("  Vectors:   %d\n", result.Indexed)
	cmd.Printf("  Dimension: %d\n", result.Dimension)
	if result.Skipped > 0 {
		cmd.Println(st.warning.Render(fmt.Sprintf("  Skipped:   %d", result.Skipped)))
	} else {
		cmd.Printf("  Skipped:   %d\n", result.Skipped)
	}
	cmd.Println(st.muted.Render(fmt.Sprintf("  Took %s", result.Duration)))
	return nil
}
