package main

import (
	"context"
	"fmt"

	"reqdesk/cmd/reqdesk/ui"
	"reqdesk/internal/domain"

	"github.com/spf13/cobra"
)

// usersCmd manages the users of a business
var usersCmd = &cobra.Command{
	Use:     "users",
	Aliases: []string{"user"},
	Short:   "Manage the users of a business",
}

var (
	userInput    domain.UserInput
	userImage    string
	userBusiness string
)

func init() {
	listCmd := &cobra.Command{Use: "list", Short: "List users", Args: cobra.NoArgs, RunE: withApp(runUsersList)}
	listCmd.Flags().StringVar(&userBusiness, "business", "", "Only users of this business (default: the signed-in business)")

	usersCmd.AddCommand(
		listCmd,
		&cobra.Command{Use: "get [id]", Short: "Show one user", Args: cobra.ExactArgs(1), RunE: withApp(runUserGet)},
		userWriteCmd(&cobra.Command{Use: "create", Short: "Create a user under the signed-in business", Args: cobra.NoArgs, RunE: withApp(runUserCreate)}),
		userWriteCmd(&cobra.Command{Use: "update [id]", Short: "Update a user", Args: cobra.ExactArgs(1), RunE: withApp(runUserUpdate)}),
		&cobra.Command{Use: "delete [id]", Short: "Delete a user", Args: cobra.ExactArgs(1), RunE: withApp(runUserDelete)},
		&cobra.Command{Use: "count", Short: "Count the users of the signed-in business", Args: cobra.NoArgs, RunE: withApp(runUsersCount)},
	)
}

func userWriteCmd(cmd *cobra.Command) *cobra.Command {
	f := cmd.Flags()
	f.StringVar(&userInput.FirstName, "first-name", "", "First name")
	f.StringVar(&userInput.LastName, "last-name", "", "Last name")
	f.StringVar(&userInput.Department, "department", "", "Department")
	f.StringVar(&userInput.Email, "email", "", "Email")
	f.StringVar(&userInput.Password, "password", "", "Password")
	f.StringVar(&userInput.BusinessUserID, "business", "", "Owning business (default: the signed-in business)")
	f.StringVar(&userImage, "image", "", "Profile image file")
	return cmd
}

func runUsersList(ctx context.Context, cmd *cobra.Command, _ []string, a *app) error {
	var (
		users []domain.Account
		err   error
	)
	business := userBusiness
	if business == "" {
		if sess, ok := a.store.Account(); ok && sess.Account.Role != domain.RoleAdmin {
			business = sess.Account.OwningBusinessID()
		}
	}
	if business != "" {
		users, err = a.actions.Users.GetByBusiness(ctx, business)
	} else {
		users, err = a.actions.Users.GetAll(ctx)
	}
	if err != nil {
		return err
	}

	tbl := ui.NewListing("Users", "ID", "Name", "Email", "Department", "Created")
	tbl.Empty = "No users yet."
	tbl.Total = "users"
	for _, u := range users {
		tbl.AddRow(u.Key(), u.DisplayName(), u.Email, u.Department, u.CreatedAt)
	}
	a.printTable(cmd, tbl)
	return nil
}

func runUserGet(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
	u, err := a.actions.Users.Get(ctx, args[0])
	if err != nil {
		return err
	}
	printAccount(cmd, u)
	return nil
}

func (a *app) userImage() (string, error) {
	if userImage == "" {
		return "", nil
	}
	img, err := a.uploads.Image(userImage)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	return img, nil
}

func runUserCreate(ctx context.Context, cmd *cobra.Command, _ []string, a *app) error {
	in := userInput
	img, err := a.userImage()
	if err != nil {
		return err
	}
	in.UserImg = img

	u, err := a.actions.Users.Create(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created user %s%s\n", in.Email, idSuffix(u.Key()))
	return nil
}

func runUserUpdate(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
	cur, err := a.actions.Users.Get(ctx, args[0])
	if err != nil {
		return err
	}
	in := domain.UserInput{
		FirstName:      cur.FirstName,
		LastName:       cur.LastName,
		Department:     cur.Department,
		Email:          cur.Email,
		BusinessUserID: cur.BusinessUserID,
		UserImg:        cur.UserImg,
	}
	for flag, dst := range map[string]*string{
		"first-name": &in.FirstName,
		"last-name":  &in.LastName,
		"department": &in.Department,
		"email":      &in.Email,
		"password":   &in.Password,
		"business":   &in.BusinessUserID,
	} {
		if changed(cmd, flag) {
			*dst = cmd.Flags().Lookup(flag).Value.String()
		}
	}
	if changed(cmd, "image") {
		if in.UserImg, err = a.userImage(); err != nil {
			return err
		}
	}

	if _, err := a.actions.Users.Update(ctx, args[0], in); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated user %s\n", in.Email)
	return nil
}

func runUserDelete(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
	if err := a.actions.Users.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %s\n", args[0])
	return nil
}

func runUsersCount(ctx context.Context, cmd *cobra.Command, _ []string, a *app) error {
	n, err := a.actions.Users.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d\n", n)
	return nil
}
