// bulkcertcli is the operator console for certificate maintenance:
// rebuilding stored documents, cloning issues with fresh codes and
// inspecting a user's issue history.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"bulkcert-backend/internal/bulk"
	"bulkcert-backend/internal/config"
	"bulkcert-backend/internal/database"
	"bulkcert-backend/internal/issues"
	"bulkcert-backend/internal/pdf"
	"bulkcert-backend/internal/storage"
	"bulkcert-backend/internal/template"
	"bulkcert-backend/internal/users"
)

type toolkit struct {
	rebuilder *bulk.Rebuilder
	queries   *bulk.Queries
	users     *users.Service
}

func buildToolkit() (*toolkit, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	store := &storage.DiskStore{Root: cfg.StorageDir}
	issueStore := &issues.Store{DB: db, Blobs: store}
	templateService := &template.Service{DB: db, Store: store}

	return &toolkit{
		rebuilder: &bulk.Rebuilder{
			DB:         db,
			Log:        log.Logger,
			Templates:  templateService,
			Issues:     issueStore,
			Renderer:   &pdf.Writer{},
			VerifyBase: cfg.VerifyBaseURL,
			DateFormat: cfg.CertDateFormat,
		},
		queries: &bulk.Queries{DB: db, Issues: issueStore},
		users:   &users.Service{DB: db},
	}, nil
}

func main() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	var clone bool

	root := &cobra.Command{
		Use:           "bulkcertcli",
		Short:         "Bulk certification maintenance console",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&clone, "clone", false,
		"replace issues with fresh ones (new verification codes) instead of rebuilding in place")

	rebulk := &cobra.Command{
		Use:   "rebulk <bulk-id>",
		Short: "Regenerate every document of one issuance run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := buildToolkit()
			if err != nil {
				return err
			}
			var bulkID uint
			if _, err := fmt.Sscanf(args[0], "%d", &bulkID); err != nil {
				return fmt.Errorf("invalid bulk id %q", args[0])
			}
			result, err := tk.rebuilder.RebuildBulk(context.Background(), bulkID, clone)
			if err != nil {
				return err
			}
			for _, line := range result.Logs {
				fmt.Println(line)
			}
			for _, line := range result.Errors {
				fmt.Fprintln(os.Stderr, line)
			}
			fmt.Printf("%d row(s), %d error(s)\n", len(result.Rows), len(result.Errors))
			return nil
		},
	}

	reissue := &cobra.Command{
		Use:   "reissue <issue-id>",
		Short: "Regenerate one issued certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := buildToolkit()
			if err != nil {
				return err
			}
			var issueID uint
			if _, err := fmt.Sscanf(args[0], "%d", &issueID); err != nil {
				return fmt.Errorf("invalid issue id %q", args[0])
			}
			issue, err := tk.rebuilder.RebuildIssue(context.Background(), issueID, clone)
			if err != nil {
				return err
			}
			fmt.Printf("issue %d rebuilt, code %s, file %s\n", issue.ID, issue.Code,
				issues.Filename(issue.CourseName, issue.CertificateName, issue.TimeCreated, issue.ID))
			return nil
		},
	}

	iuser := &cobra.Command{
		Use:   "iuser <username>",
		Short: "List a user's certificate issues, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := buildToolkit()
			if err != nil {
				return err
			}
			user, err := tk.users.GetByUsername(context.Background(), args[0])
			if err != nil {
				return err
			}
			history, err := tk.queries.UserHistory(context.Background(), user.ID)
			if err != nil {
				return err
			}
			for _, issue := range history {
				state := "active"
				if issue.TimeDeleted != nil {
					state = "deleted"
				}
				fmt.Printf("%d\t%s\t%s\t%s\t%s\n", issue.ID, issue.Code,
					issue.CourseName, issue.TimeCreated.Format("2006-01-02"), state)
			}
			fmt.Printf("%d issue(s)\n", len(history))
			return nil
		},
	}

	root.AddCommand(rebulk, reissue, iuser)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
