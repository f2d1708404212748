package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/beamline/beamline/internal/logging"
	"github.com/beamline/beamline/internal/store"
	"github.com/beamline/beamline/internal/web/api"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the API route table",
	RunE: func(cmd *cobra.Command, args []string) error {
		// A route listing needs no live backends; the handlers are
		// registered but never invoked.
		cfg := api.Config{
			Store:  store.New(nil),
			Logger: logging.Nop(),
		}
		router := api.New(cfg).Router(cfg)

		return chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			fmt.Printf("%-7s %s\n", method, strings.TrimSuffix(route, "/"))
			return nil
		})
	},
}
