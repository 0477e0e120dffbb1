package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lookalike/internal/core/domain"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [image]",
	Short: "Find stored images similar to an image file",
	Long: `Embeds the given image and prints the ids of the most similar stored
images, nearest first. The index is built from the feature table first.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (default search.top_k)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}

	image, err := readImageFile(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if !svc.Index.Status(ctx).Ready {
		if _, err := svc.Index.Rebuild(ctx); err != nil {
			return fmt.Errorf("build index: %w", err)
		}
	}

	ids, err := svc.Search.SearchByImage(ctx, image, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		if ids == nil {
			ids = []string{}
		}
		data, err := json.MarshalIndent(map[string][]string{"similar_image_ids": ids}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(ids) == 0 {
		cmd.Println("No similar images found.")
		return nil
	}

	st := newStyles(cmd.OutOrStderr())
	cmd.Println(st.title.Render("Similar images:"))
	for i, id := range ids {
		cmd.Printf("  [%d] %s\n", i+1, id)
	}
	return nil
}

func readImageFile(path string) (domain.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Image{}, fmt.Errorf("read image: %w", err)
	}
	return domain.Image{Filename: filepath.Base(path), Data: data}, nil
}
