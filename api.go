package main

import (
	"os"

	"github.com/spf13/cobra"

	"recipevault/backend"
	"recipevault/config"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Serve the reference recipe API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup(":8081")
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		var store backend.Store
		switch cfg.Store {
		case config.StoreFirestore:
			if cfg.CredentialsFile != "" {
				// Other Google clients in the process pick the same key up.
				if err := os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", cfg.CredentialsFile); err != nil {
					return err
				}
			}
			fs, err := backend.NewFirestoreStore(ctx, cfg.FirestoreProject, cfg.CredentialsFile)
			if err != nil {
				return err
			}
			defer fs.Close()
			store = fs
		default:
			store = backend.NewMemoryStore()
		}

		var images backend.ImageStore = backend.NewMemoryImageStore()
		if cfg.ImagesDir != "" {
			dir, err := backend.NewDirImageStore(cfg.ImagesDir)
			if err != nil {
				return err
			}
			images = dir
		}

		a := backend.NewAPI(store, images, cfg.PublicURL, log.WithField("component", "api"))
		r := backend.NewRouter(a, log)

		log.WithField("store", cfg.Store).Info("recipe API configured")
		return listen(ctx, log, cfg.Listen, withCORS(r, cfg.CORSOrigins))
	},
}

func init() {
	f := apiCmd.Flags()
	f.String("store", config.StoreMemory, "Recipe store (memory or firestore)")
	f.String("firestore-project", "", "Google Cloud project holding the recipes collection")
	f.String("credentials-file", "", "Service account key file for Firestore")
	f.String("images-dir", "", "Directory for uploaded images (in memory when empty)")
	f.String("public-url", "", "Public base URL used in image references")
	if err := v.BindPFlags(f); err != nil {
		panic(err)
	}
}
