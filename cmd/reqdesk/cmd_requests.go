package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reqdesk/cmd/reqdesk/ui"
	"reqdesk/internal/domain"
	"reqdesk/internal/upload"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// requestsCmd manages analytics requests
var requestsCmd = &cobra.Command{
	Use:     "requests",
	Aliases: []string{"request"},
	Short:   "File and track analytics requests",
	Long: `File and track analytics requests.

A request moves from pending to in progress to completed. Completing one
requires the finished analytics file:

  reqdesk requests status <id> --status completed --file report.pdf`,
}

var (
	reqInput        domain.AnalyticsInput
	reqFile         string
	reqConsent      bool
	reqBusiness     string
	reqBusinessUser string
	reqStatus       string
	reqOut          string
	reqOriginal     bool
)

func init() {
	listCmd := &cobra.Command{Use: "list", Short: "List the requests you can see", Args: cobra.NoArgs, RunE: withApp(runRequestsList)}
	listCmd.Flags().StringVar(&reqBusiness, "business", "", "Requests filed under this business")
	listCmd.Flags().StringVar(&reqBusinessUser, "business-user", "", "Requests filed by this user")
	listCmd.MarkFlagsMutuallyExclusive("business", "business-user")

	statusCmd := &cobra.Command{Use: "status [id]", Short: "Move a request to another status", Args: cobra.ExactArgs(1), RunE: withApp(runRequestStatus)}
	statusCmd.Flags().StringVar(&reqStatus, "status", "", "pending, in-progress or completed (required)")
	statusCmd.Flags().StringVar(&reqFile, "file", "", "Completed analytics file (required for completed)")
	statusCmd.MarkFlagRequired("status")

	countCmd := &cobra.Command{Use: "count", Short: "Count requests", Args: cobra.NoArgs, RunE: withApp(runRequestsCount)}
	countCmd.Flags().StringVar(&reqBusiness, "business", "", "Count only this business")

	downloadCmd := &cobra.Command{Use: "download [id]", Short: "Save the completed analytics file", Args: cobra.ExactArgs(1), RunE: withApp(runRequestDownload)}
	downloadCmd.Flags().StringVarP(&reqOut, "out", "o", "", "Output path (default: <id><ext> in the current directory)")
	downloadCmd.Flags().BoolVar(&reqOriginal, "original", false, "Save the uploaded source file instead")

	requestsCmd.AddCommand(
		listCmd,
		&cobra.Command{Use: "get [id]", Short: "Show one request", Args: cobra.ExactArgs(1), RunE: withApp(runRequestGet)},
		requestWriteCmd(&cobra.Command{Use: "create", Short: "File a new request", Args: cobra.NoArgs, RunE: withApp(runRequestCreate)}),
		requestWriteCmd(&cobra.Command{Use: "update [id]", Short: "Edit a request", Args: cobra.ExactArgs(1), RunE: withApp(runRequestUpdate)}),
		&cobra.Command{Use: "delete [id]", Short: "Delete a request", Args: cobra.ExactArgs(1), RunE: withApp(runRequestDelete)},
		statusCmd,
		countCmd,
		downloadCmd,
	)
}

func requestWriteCmd(cmd *cobra.Command) *cobra.Command {
	f := cmd.Flags()
	f.StringVar(&reqInput.Title, "title", "", "Request title")
	f.StringVar(&reqInput.Description, "description", "", "What the analysis should answer")
	f.StringVar(&reqInput.CategoryID, "category", "", "Data category id")
	f.StringVar(&reqInput.RequestTypeID, "type", "", "Request type id")
	f.StringVar(&reqFile, "file", "", "Source data file ("+strings.Join(upload.DocumentExtensions(), ", ")+")")
	f.BoolVar(&reqConsent, "consent", false, "Consent to the data being processed")
	return cmd
}

// catalog returns the categories and request types used to name a request's
// references, fetching them when the store has none.
func (a *app) catalog(ctx context.Context) ([]domain.Category, []domain.RequestType) {
	snap := a.store.Snapshot()
	cats, types := snap.Categories.Items, snap.RequestTypes.Items
	if len(cats) == 0 {
		if got, err := a.actions.Categories.GetAll(ctx); err != nil {
			logger.Warn("Failed to load categories", zap.Error(err))
		} else {
			cats = got
		}
	}
	if len(types) == 0 {
		if got, err := a.actions.RequestTypes.GetAll(ctx); err != nil {
			logger.Warn("Failed to load request types", zap.Error(err))
		} else {
			types = got
		}
	}
	return cats, types
}

func runRequestsList(ctx context.Context, cmd *cobra.Command, _ []string, a *app) error {
	var (
		reqs []domain.RequestAnalytics
		err  error
	)
	switch {
	case reqBusiness != "":
		reqs, err = a.actions.Analytics.GetByBusiness(ctx, reqBusiness)
	case reqBusinessUser != "":
		reqs, err = a.actions.Analytics.GetByBusinessUser(ctx, reqBusinessUser)
	default:
		sess, serr := a.session()
		if serr != nil {
			return serr
		}
		switch sess.Account.Role {
		case domain.RoleAdmin:
			reqs, err = a.actions.Analytics.GetAll(ctx)
		case domain.RoleBusiness:
			reqs, err = a.actions.Analytics.GetByBusiness(ctx, sess.Account.Key())
		default:
			reqs, err = a.actions.Analytics.GetByBusinessUser(ctx, sess.Account.Key())
		}
	}
	if err != nil {
		return err
	}

	cats, types := a.catalog(ctx)
	tbl := ui.NewListing("Request analytics", "ID", "Title", "Category", "Type", "Status", "Created")
	tbl.Empty = "No requests yet."
	tbl.Total = "requests"
	tbl.Column("Title").Max = 32
	tbl.Column("Status").Status = true
	for _, r := range reqs {
		tbl.AddRow(r.Key(), r.Title,
			domain.CategoryName(cats, r.CategoryID),
			domain.RequestTypeName(types, r.RequestTypeID),
			r.Status.Label(), r.CreatedAt)
	}
	a.printTable(cmd, tbl)
	return nil
}

func runRequestGet(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
	r, err := a.actions.Analytics.Get(ctx, args[0])
	if err != nil {
		return err
	}
	cats, types := a.catalog(ctx)
	completed := ""
	if r.CompletedDataFile != "" {
		completed = "available (reqdesk requests download " + r.Key() + ")"
	}
	printFields(cmd.OutOrStdout(),
		"ID", r.Key(),
		"Title", r.Title,
		"Category", domain.CategoryName(cats, r.CategoryID),
		"Type", domain.RequestTypeName(types, r.RequestTypeID),
		"Status", r.Status.Label(),
		"Requested by", r.UserID,
		"Business", r.BusinessUserID,
		"Created", r.CreatedAt,
		"Result", completed,
	)
	if r.Description != "" {
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprint(cmd.OutOrStdout(), ui.RenderMarkdown(r.Description, a.styles().Theme, 80))
	}
	return nil
}

func consentValue(ok bool) int {
	if ok {
		return 1
	}
	return 0
}

func (a *app) document(path string) (string, error) {
	doc, err := a.uploads.Document(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

func runRequestCreate(ctx context.Context, cmd *cobra.Command, _ []string, a *app) error {
	in := reqInput
	in.Consent = consentValue(reqConsent)
	if reqFile != "" {
		doc, err := a.document(reqFile)
		if err != nil {
			return err
		}
		in.DataFile = doc
	}

	r, err := a.actions.Analytics.Create(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Filed request %s%s\n", in.Title, idSuffix(r.Key()))
	return nil
}

func runRequestUpdate(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
	cur, err := a.actions.Analytics.Get(ctx, args[0])
	if err != nil {
		return err
	}
	in := domain.AnalyticsInput{
		UserID:         cur.UserID,
		BusinessUserID: cur.BusinessUserID,
		Title:          cur.Title,
		Description:    cur.Description,
		DataFile:       cur.DataFile,
		RequestTypeID:  cur.RequestTypeID,
		CategoryID:     cur.CategoryID,
		Consent:        cur.Consent,
	}
	if changed(cmd, "title") {
		in.Title = reqInput.Title
	}
	if changed(cmd, "description") {
		in.Description = reqInput.Description
	}
	if changed(cmd, "category") {
		in.CategoryID = reqInput.CategoryID
	}
	if changed(cmd, "type") {
		in.RequestTypeID = reqInput.RequestTypeID
	}
	if changed(cmd, "consent") {
		in.Consent = consentValue(reqConsent)
	}
	if changed(cmd, "file") {
		if in.DataFile, err = a.document(reqFile); err != nil {
			return err
		}
	}

	if _, err := a.actions.Analytics.Update(ctx, args[0], in); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated request %s\n", in.Title)
	return nil
}

func runRequestDelete(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
	if err := a.actions.Analytics.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted request %s\n", args[0])
	return nil
}

// parseStatus accepts the status as stored or with a dash for the space.
func parseStatus(s string) domain.Status {
	return domain.Status(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", " "))
}

func runRequestStatus(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
	in := domain.StatusUpdate{Status: parseStatus(reqStatus)}
	if reqFile != "" {
		doc, err := a.document(reqFile)
		if err != nil {
			return err
		}
		in.File = doc
	}
	if _, err := a.actions.Analytics.UpdateStatus(ctx, args[0], in); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Request %s is now %s\n", args[0], in.Status.Label())
	return nil
}

func runRequestsCount(ctx context.Context, cmd *cobra.Command, _ []string, a *app) error {
	business := reqBusiness
	if business == "" {
		if sess, ok := a.store.Account(); ok && sess.Account.Role == domain.RoleBusiness {
			business = sess.Account.Key()
		}
	}

	var (
		n   int
		err error
	)
	if business != "" {
		n, err = a.actions.Analytics.CountByBusiness(ctx, business)
	} else {
		n, err = a.actions.Analytics.Count(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d\n", n)
	return nil
}

func runRequestDownload(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
	r, err := a.actions.Analytics.Get(ctx, args[0])
	if err != nil {
		return err
	}
	src := r.CompletedDataFile
	if reqOriginal {
		src = r.DataFile
	}
	if src == "" {
		return fmt.Errorf("request %s has no file to download yet", args[0])
	}

	mime, data, err := upload.Decode(src)
	if err != nil {
		return fmt.Errorf("failed to decode file: %w", err)
	}
	out := reqOut
	if out == "" {
		out = filepath.Base(args[0]) + upload.Extension(mime)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s, %d bytes)\n", out, mime, len(data))
	return nil
}
