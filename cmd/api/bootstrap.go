package main

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/org-chart-api/internal/dto"
	"github.com/org-chart-api/internal/repository"
	"github.com/org-chart-api/internal/service"
	"github.com/spf13/cobra"
)

func newBootstrapRootCmd(a *app) *cobra.Command {
	var req dto.CreateEmployeeRequest

	cmd := &cobra.Command{
		Use:   "bootstrap-root",
		Short: "Create the organization root (CEO) once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validator.New().Struct(&req); err != nil {
				return err
			}

			db, closeDB, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			store := repository.NewStore(db, repository.WithTxRetries(a.cfg.Database.TxRetries))
			root, err := service.NewEmployeeService(store, a.logger).CreateRoot(cmd.Context(), &req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(root)
		},
	}

	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "root first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "root last name")
	cmd.Flags().StringVar(&req.Title, "title", "Chief Executive Officer", "root title")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")
	return cmd
}
