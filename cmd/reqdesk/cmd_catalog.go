package main

import (
	"context"
	"fmt"

	"reqdesk/cmd/reqdesk/ui"
	"reqdesk/internal/domain"

	"github.com/spf13/cobra"
)

// categoriesCmd manages data categories
var categoriesCmd = &cobra.Command{
	Use:     "categories",
	Aliases: []string{"category"},
	Short:   "Manage data categories",
}

// requestTypesCmd manages analytics request types
var requestTypesCmd = &cobra.Command{
	Use:     "request-types",
	Aliases: []string{"request-type", "types"},
	Short:   "Manage analytics request types",
}

var (
	catalogName        string
	catalogDescription string
)

func init() {
	categoriesCmd.AddCommand(
		&cobra.Command{Use: "list", Short: "List categories", Args: cobra.NoArgs, RunE: withApp(runCategoriesList)},
		&cobra.Command{Use: "get [id]", Short: "Show one category", Args: cobra.ExactArgs(1), RunE: withApp(runCategoryGet)},
		catalogWriteCmd(&cobra.Command{Use: "create", Short: "Create a category", Args: cobra.NoArgs, RunE: withApp(runCategoryCreate)}),
		catalogWriteCmd(&cobra.Command{Use: "update [id]", Short: "Update a category", Args: cobra.ExactArgs(1), RunE: withApp(runCategoryUpdate)}),
		&cobra.Command{Use: "delete [id]", Short: "Delete a category", Args: cobra.ExactArgs(1), RunE: withApp(runCategoryDelete)},
	)

	requestTypesCmd.AddCommand(
		&cobra.Command{Use: "list", Short: "List request types", Args: cobra.NoArgs, RunE: withApp(runRequestTypesList)},
		&cobra.Command{Use: "get [id]", Short: "Show one request type", Args: cobra.ExactArgs(1), RunE: withApp(runRequestTypeGet)},
		catalogWriteCmd(&cobra.Command{Use: "create", Short: "Create a request type", Args: cobra.NoArgs, RunE: withApp(runRequestTypeCreate)}),
		catalogWriteCmd(&cobra.Command{Use: "update [id]", Short: "Update a request type", Args: cobra.ExactArgs(1), RunE: withApp(runRequestTypeUpdate)}),
		&cobra.Command{Use: "delete [id]", Short: "Delete a request type", Args: cobra.ExactArgs(1), RunE: withApp(runRequestTypeDelete)},
	)
}

func catalogWriteCmd(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().StringVar(&catalogName, "name", "", "Name")
	cmd.Flags().StringVar(&catalogDescription, "description", "", "Description")
	return cmd
}

// Categories

func runCategoriesList(ctx context.Context, cmd *cobra.Command, _ []string, a *app) error {
	cats, err := a.actions.Categories.GetAll(ctx)
	if err != nil {
		return err
	}
	tbl := ui.NewListing("Data categories", "ID", "Name", "Description")
	tbl.Empty = "No categories yet."
	tbl.Total = "categories"
	tbl.Column("Description").Max = 48
	for _, c := range cats {
		tbl.AddRow(c.Key(), c.Name, c.Description)
	}
	a.printTable(cmd, tbl)
	return nil
}

func runCategoryGet(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
	c, err := a.actions.Categories.Get(ctx, args[0])
	if err != nil {
		return err
	}
	printFields(cmd.OutOrStdout(), "ID", c.Key(), "Name", c.Name, "Description", c.Description, "Created", c.CreatedAt)
	return nil
}

func runCategoryCreate(ctx context.Context, cmd *cobra.Command, _ []string, a *app) error {
	c, err := a.actions.Categories.Create(ctx, domain.CategoryInput{Name: catalogName, Description: catalogDescription})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created category %s%s\n", catalogName, idSuffix(c.Key()))
	return nil
}

func runCategoryUpdate(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
	cur, err := a.actions.Categories.Get(ctx, args[0])
	if err != nil {
		return err
	}
	in := domain.CategoryInput{Name: cur.Name, Description: cur.Description}
	if changed(cmd, "name") {
		in.Name = catalogName
	}
	if changed(cmd, "description") {
		in.Description = catalogDescription
	}
	if _, err := a.actions.Categories.Update(ctx, args[0], in); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated category %s\n", in.Name)
	return nil
}

func runCategoryDelete(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
	if err := a.actions.Categories.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %s\n", args[0])
	return nil
}

// Request types

func runRequestTypesList(ctx context.Context, cmd *cobra.Command, _ []string, a *app) error {
	types, err := a.actions.RequestTypes.GetAll(ctx)
	if err != nil {
		return err
	}
	tbl := ui.NewListing("Analytics types", "ID", "Name", "Description")
	tbl.Empty = "No request types yet."
	tbl.Total = "request types"
	tbl.Column("Description").Max = 48
	for _, t := range types {
		tbl.AddRow(t.Key(), t.Name, t.Description)
	}
	a.printTable(cmd, tbl)
	return nil
}

func runRequestTypeGet(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
	t, err := a.actions.RequestTypes.Get(ctx, args[0])
	if err != nil {
		return err
	}
	printFields(cmd.OutOrStdout(), "ID", t.Key(), "Name", t.Name, "Description", t.Description, "Created", t.CreatedAt)
	return nil
}

func runRequestTypeCreate(ctx context.Context, cmd *cobra.Command, _ []string, a *app) error {
	t, err := a.actions.RequestTypes.Create(ctx, domain.RequestTypeInput{Name: catalogName, Description: catalogDescription})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created request type %s%s\n", catalogName, idSuffix(t.Key()))
	return nil
}

func runRequestTypeUpdate(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
	cur, err := a.actions.RequestTypes.Get(ctx, args[0])
	if err != nil {
		return err
	}
	in := domain.RequestTypeInput{Name: cur.Name, Description: cur.Description}
	if changed(cmd, "name") {
		in.Name = catalogName
	}
	if changed(cmd, "description") {
		in.Description = catalogDescription
	}
	if _, err := a.actions.RequestTypes.Update(ctx, args[0], in); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated request type %s\n", in.Name)
	return nil
}

func runRequestTypeDelete(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
	if err := a.actions.RequestTypes.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted request type %s\n", args[0])
	return nil
}
