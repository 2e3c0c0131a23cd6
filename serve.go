package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"recipevault/client"
	"recipevault/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Recipe Vault front end",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup(":8080")
		if err != nil {
			return err
		}

		api := client.New(cfg.APIURL, cfg.UploadURL,
			client.WithTimeout(cfg.Timeout),
			client.WithLogger(log.WithField("component", "client")),
		)
		fetch := &http.Client{Timeout: 30 * time.Second}
		srv := handlers.New(api, log.WithField("component", "web"), fetch)
		r := handlers.NewRouter(srv, log)

		log.WithField("api_url", cfg.APIURL).Info("front end configured")
		return listen(cmd.Context(), log, cfg.Listen, withCORS(r, cfg.CORSOrigins))
	},
}

func init() {
	f := serveCmd.Flags()
	f.String("api-url", "http://localhost:8081", "Base URL of the recipe API")
	f.String("upload-url", "", "Image upload endpoint (defaults to <api-url>/images)")
	f.Duration("timeout", 15*time.Second, "Timeout for recipe API requests")
	if err := v.BindPFlags(f); err != nil {
		panic(err)
	}
}
