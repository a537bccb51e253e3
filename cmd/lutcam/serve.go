package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coreman2200/funtimes-lutcam/internal/app"
	"github.com/coreman2200/funtimes-lutcam/internal/ws"
)

func serveCmd(f *rootFlags) *cobra.Command {
	var addr string
	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the capture session and serve state, preview and controls over websockets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			core, err := app.InitCore(cfg)
			if err != nil {
				return err
			}
			hub := ws.NewHub(core.Ctl, ws.Options{
				PreviewWidth: cfg.Camera.PreviewWidth,
				PreviewFPS:   cfg.Server.PreviewFPS,
				JPEGQuality:  cfg.Server.JPEGQuality,
			})

			mux := http.NewServeMux()
			hub.Routes(mux)
			mux.Handle("/photos/", http.StripPrefix("/photos/", http.FileServer(http.Dir(core.Lib.Dir()))))

			srv := &http.Server{
				Addr:         cfg.Server.Addr,
				Handler:      withCORS(mux),
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  60 * time.Second,
			}
			go func() {
				log.Info().Str("addr", cfg.Server.Addr).Str("camera", cfg.Camera.Backend).Str("flash", cfg.Flash.Driver).Msg("HTTP server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("http server crashed")
				}
			}()

			ch := make(chan os.Signal, 1)
			signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
			select {
			case s := <-ch:
				log.Info().Str("signal", s.String()).Msg("shutting down")
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
			hub.Close()
			return core.Close()
		},
	}
	c.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	return c
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
