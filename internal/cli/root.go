package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/trustmap/internal/cache"
	"github.com/ppiankov/trustmap/internal/logging"
	"github.com/ppiankov/trustmap/internal/model"
	"github.com/ppiankov/trustmap/internal/registry"
)

// Version is the release reported by "trustmap version"
const Version = "v0.1.0"

var (
	cfgFile     string
	registryDir string
	verbose     bool

	cfg    *model.Config
	logger = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "trustmap",
	Short: "trustmap - neutrosophic mapping and fusion of evidence",
	Long: `trustmap turns raw observations (numbers, category labels, booleans)
into neutrosophic judgments (T, I, F): degrees of truth, indeterminacy
and falsity. Judgments from independent sources are fused with a
conflict-aware weighted average that moves disagreement into I instead
of averaging it away.

Every judgment carries the provenance chain that produced it. Fused
judgments are sealed and carry a content-derived id, so a result can be
audited and re-verified later.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Log.Format)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of trustmap.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "trustmap %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.trustmap/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&registryDir, "registry-dir", "", "directory of persisted mappers (default: $HOME/.trustmap/registry)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")

	// Bind flags to viper
	_ = viper.BindPFlag("registry.dir", rootCmd.PersistentFlags().Lookup("registry-dir"))
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".trustmap"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// TRUSTMAP_FUSION_SENSITIVITY overrides fusion.sensitivity, and so on
	viper.SetEnvPrefix("TRUSTMAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers viper (flags, env, file) over the defaults
func loadConfig() (*model.Config, error) {
	defaults := model.DefaultConfig()
	setDefaults(defaults)

	c := &model.Config{}
	if err := viper.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal
func setDefaults(d *model.Config) {
	viper.SetDefault("fusion.operator", d.Fusion.Operator)
	viper.SetDefault("fusion.sensitivity", d.Fusion.Sensitivity)
	viper.SetDefault("registry.dir", d.Registry.Dir)
	viper.SetDefault("registry.memory_ttl", d.Registry.MemoryTTL)
	viper.SetDefault("concurrency.workers", d.Concurrency.Workers)
	viper.SetDefault("concurrency.rate_per_mapper", d.Concurrency.RatePerMapper)
	viper.SetDefault("concurrency.burst", d.Concurrency.Burst)
	viper.SetDefault("decision.approve_threshold", d.Decision.ApproveThreshold)
	viper.SetDefault("decision.review_threshold", d.Decision.ReviewThreshold)
	viper.SetDefault("output.verbose", d.Output.Verbose)
	viper.SetDefault("output.include_footer", d.Output.IncludeFooter)
	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.format", d.Log.Format)
}

// defaultRegistryDir is $HOME/.trustmap/registry
func defaultRegistryDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error finding home directory: %w", err)
	}
	return filepath.Join(home, ".trustmap", "registry"), nil
}

// openRegistry opens the persisted registry and loads every stored mapper
func openRegistry() (*registry.Registry, error) {
	dir := cfg.Registry.Dir
	if dir == "" {
		var err error
		if dir, err = defaultRegistryDir(); err != nil {
			return nil, err
		}
	}

	store := cache.NewLayeredCache(cfg.Registry.MemoryTTL, dir, 0)
	reg := registry.New(store, logger)

	n, err := reg.Restore()
	if err != nil {
		return nil, fmt.Errorf("restore registry: %w", err)
	}
	logger.Debug("registry opened", zap.String("dir", dir), zap.Int("mappers", n))
	return reg, nil
}

// writeOutput writes data to path, or to w when path is empty or "-"
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
