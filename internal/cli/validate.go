package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/trustmap/internal/model"
	"github.com/ppiankov/trustmap/internal/validate"
)

var (
	validateKind string
	validateJSON bool
)

// validateCmd checks document structure without constructing anything
var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check mapper and judgment documents for structural errors",
	Long: `Validate checks that documents have the required fields with the right
JSON types, a supported version and a known mapper type. It reports every
issue with its path instead of stopping at the first one. Files are
checked concurrently; YAML files are converted to JSON first.

The document kind is detected from its fields unless --kind is given.

Example:
  trustmap validate mappers/*.yaml
  trustmap validate fused.json --kind judgment --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	kind, err := validate.ParseDocumentKind(validateKind)
	if err != nil {
		return err
	}

	results := validate.NewValidator(cfg.Concurrency.Workers).ValidateFiles(context.Background(), args, kind)

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}

	out := cmd.OutOrStdout()
	if validateJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		fmt.Fprintln(out, string(data))
	} else {
		for _, r := range results {
			switch {
			case r.Error != "":
				fmt.Fprintf(out, "✗ %s: %s\n", r.Path, r.Error)
			case r.OK():
				fmt.Fprintf(out, "✓ %s (%s)\n", r.Path, r.Kind)
			default:
				fmt.Fprintf(out, "✗ %s (%s)\n", r.Path, r.Kind)
				for _, issue := range r.Issues {
					fmt.Fprintf(out, "    %s\n", issue)
				}
			}
		}
	}

	if failed > 0 {
		return model.ValidationError("%d of %d documents failed validation", failed, len(results))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateKind, "kind", "auto", "document kind: mapper, judgment or auto")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "print results as JSON")
}
