// ABOUTME: CLI for syncing agent directories into the bundle tree.
// ABOUTME: Handles manifest version bumps, packaging, and S3 publishing.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tmates/dispatch/internal/bundle"
	"github.com/tmates/dispatch/internal/config"
	"github.com/tmates/dispatch/internal/storage"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		platformDir string
		bundleDir   string
		all         bool
		setVersion  string
		bump        string
		publish     bool
	)

	cmd := &cobra.Command{
		Use:     "dispatch-sync [agent]",
		Short:   "Sync agent directories into the bundle tree",
		Version: version,
		Long: `Copies agent implementations from the platform tree into the bundle
tree, keeps manifest versions aligned, and optionally packages and
publishes the resulting bundle to S3.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if setVersion != "" && bump != "" {
				return fmt.Errorf("use either --version or --bump, not both")
			}

			syncer := bundle.NewSyncer(platformDir, bundleDir)

			var agents []string
			if all {
				discovered, err := syncer.DiscoverAgents()
				if err != nil {
					return err
				}
				if len(discovered) == 0 {
					return fmt.Errorf("no agents found to sync under %s", platformDir)
				}
				agents = discovered
			} else {
				if len(args) == 0 {
					return fmt.Errorf("provide an agent key or use --all")
				}
				agents = []string{args[0]}
			}

			for _, agent := range agents {
				if err := syncOne(cmd.Context(), syncer, agent, setVersion, bump, publish); err != nil {
					return err
				}
			}

			fmt.Printf("Synced %d agent(s).\n", len(agents))
			return nil
		},
	}

	cmd.Flags().StringVar(&platformDir, "platform-dir", "app/agents", "platform agents root to sync from")
	cmd.Flags().StringVar(&bundleDir, "bundle-dir", "bundles/agents", "bundle tree to sync into")
	cmd.Flags().BoolVar(&all, "all", false, "sync every agent found under the platform root")
	cmd.Flags().StringVar(&setVersion, "version", "", "manifest version to set for both trees")
	cmd.Flags().StringVar(&bump, "bump", "", "increment manifest versions (major|minor|patch)")
	cmd.Flags().BoolVar(&publish, "publish", false, "package and upload the synced bundle to S3")

	return cmd
}

// syncOne syncs a single agent, applying version changes and publishing as
// requested.
func syncOne(ctx context.Context, syncer *bundle.Syncer, agent, setVersion, bump string, publish bool) error {
	if err := syncer.SyncAgent(agent); err != nil {
		return err
	}
	fmt.Printf("  %s: synced\n", agent)

	if setVersion != "" || bump != "" {
		newVersion := setVersion
		if bump != "" {
			current, err := bundle.ReadManifestVersion(syncer.PlatformManifest(agent))
			if err != nil {
				return err
			}
			newVersion, err = bundle.BumpVersion(current, bump)
			if err != nil {
				return err
			}
		}
		if err := syncer.SetVersion(agent, newVersion); err != nil {
			return err
		}
		fmt.Printf("  %s: version -> %s\n", agent, newVersion)
	}

	if publish {
		if err := publishBundle(ctx, syncer, agent); err != nil {
			return err
		}
	}
	return nil
}

// publishBundle packages the agent's bundle directory and uploads it using
// the storage settings from the dispatch config.
func publishBundle(ctx context.Context, syncer *bundle.Syncer, agent string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket not configured; cannot publish")
	}

	uploader, err := storage.NewUploader(ctx, storage.Config{
		Bucket:     cfg.Storage.Bucket,
		Region:     cfg.Storage.Region,
		Prefix:     cfg.Storage.Prefix,
		Endpoint:   cfg.Storage.Endpoint,
		PresignTTL: cfg.Storage.PresignTTL,
	})
	if err != nil {
		return fmt.Errorf("creating uploader: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "dispatch-sync-")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	archive := filepath.Join(tmpDir, agent+".tar.gz")
	checksum, err := bundle.Package(syncer.BundleDir(agent), archive)
	if err != nil {
		return err
	}

	key, err := uploader.UploadBundle(ctx, agent, archive)
	if err != nil {
		return err
	}

	url, err := uploader.PresignURL(ctx, key)
	if err != nil {
		return err
	}

	fmt.Printf("  %s: published %s\n", agent, key)
	fmt.Printf("  %s: sha256 %s\n", agent, checksum)
	fmt.Printf("  %s: download %s\n", agent, url)
	return nil
}

// configPath mirrors the dispatch server's config resolution.
func configPath() string {
	if envPath := os.Getenv("DISPATCH_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "dispatch.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "dispatch", "dispatch.yaml")
}
