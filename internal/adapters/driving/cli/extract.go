package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lookalike/internal/core/domain"
)

var (
	extractIDs  []string
	extractSave bool
	extractJSON bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [image...]",
	Short: "Extract feature vectors from image files",
	Long: `Embeds each image and labels its vector with the matching --id, in order.
Use --save to store the vectors in the feature table so the next rebuild
indexes them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringSliceVar(&extractIDs, "id", nil, "image id for each file, in order (repeatable)")
	extractCmd.Flags().BoolVar(&extractSave, "save", false, "store vectors in the feature table")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "output vectors as JSON")
	rootCmd.AddCommand(extractCmd)
}

func sortedKeys(m map[string][]float32) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runExtract(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}

	images := make([]domain.Image, len(args))
	for i, path := range args {
		img, err := readImageFile(path)
		if err != nil {
			return err
		}
		images[i] = img
	}

	ctx := cmd.Context()
	features, err := svc.Extraction.ExtractBatch(ctx, domain.ExtractionBatch{Images: images, IDs: extractIDs})
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	// The service already persisted when extraction.persist is set.
	if extractSave && !svc.Settings.Extraction.Persist {
		if svc.Features == nil {
			return errors.New("feature store not configured")
		}
		rows := make([]domain.FeatureRow, 0, len(features))
		seen := make(map[string]struct{}, len(features))
		for _, id := range extractIDs {
			vec, ok := features[id]
			if _, dup := seen[id]; !ok || dup {
				continue
			}
			seen[id] = struct{}{}
			rows = append(rows, domain.NewFeatureRow(id, vec))
		}
		if err := svc.Features.Save(ctx, rows); err != nil {
			return fmt.Errorf("save features: %w", err)
		}
	}

	if extractJSON {
		data, err := json.Marshal(map[string]any{"features": features})
		if err != nil {
			return fmt.Errorf("failed to marshal features: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	st := newStyles(cmd.OutOrStderr())
	for _, id := range sortedKeys(features) {
		cmd.Printf("  %s: %d dimensions\n", id, len(features[id]))
	}
	msg := fmt.Sprintf("Extracted %d feature vectors", len(features))
	if extractSave || svc.Settings.Extraction.Persist {
		msg += " and saved them"
	}
	cmd.Println(st.success.Render(msg))
	return nil
}
