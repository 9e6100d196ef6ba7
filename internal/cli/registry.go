package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/trustmap/internal/mapper"
	"github.com/ppiankov/trustmap/internal/registry"
)

var (
	replaceMappers bool
	exportOut      string
)

// registryCmd groups mapper management
var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage persisted mappers",
	Long: `Mappers are stored as JSON documents under the registry directory
(--registry-dir, registry.dir, default ~/.trustmap/registry) and are
available to apply, batch and evaluate by id.

Example:
  trustmap registry add server-room-temp.yaml kyc.json
  trustmap registry list
  trustmap registry show kyc
  trustmap registry export --out mappers.json`,
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered mappers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		ids := reg.List()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No mappers registered")
			return nil
		}
		for _, id := range ids {
			m, err := reg.Get(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, mapper.Describe(m))
		}
		return nil
	},
}

var registryShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a mapper document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		m, err := reg.Get(args[0])
		if err != nil {
			return err
		}
		doc, err := m.Document()
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal mapper: %w", err)
		}
		return writeOutput(cmd.OutOrStdout(), "", append(data, '\n'))
	},
}

var registryAddCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Register mapper documents (.json, .yaml, .yml)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}

		// Decode everything first so a bad file registers nothing
		mappers := make([]mapper.Mapper, 0, len(args))
		for _, path := range args {
			m, err := registry.LoadFile(path)
			if err != nil {
				return err
			}
			mappers = append(mappers, m)
		}

		for _, m := range mappers {
			if replaceMappers {
				err = reg.Put(m)
			} else {
				err = reg.Register(m)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", mapper.Describe(m))
		}
		return nil
	},
}

var registryLoadCmd = &cobra.Command{
	Use:   "load <dir>",
	Short: "Register (or replace) every mapper document in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		n, err := reg.LoadDir(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Loaded %d mappers from %s\n", n, args[0])
		return nil
	},
}

var registryRemoveCmd = &cobra.Command{
	Use:   "remove <id>...",
	Short: "Remove mappers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := reg.Remove(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %s\n", id)
		}
		return nil
	},
}

var registryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every mapper as one JSON object keyed by id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		data, err := reg.Export()
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), exportOut, append(data, '\n'))
	},
}

var registryImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import an export file, replacing mappers with the same id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read export: %w", err)
		}
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		n, err := reg.Import(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d mappers\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registryCmd)
	registryCmd.AddCommand(registryListCmd, registryShowCmd, registryAddCmd, registryLoadCmd,
		registryRemoveCmd, registryExportCmd, registryImportCmd)

	registryAddCmd.Flags().BoolVar(&replaceMappers, "replace", false, "replace mappers that are already registered")
	registryExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (default: stdout)")
}
