package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"legalcheck-backend/app"
	"legalcheck-backend/config"
	"legalcheck-backend/repository"
	"legalcheck-backend/service"

	"github.com/spf13/cobra"
)

// schemaCmd bootstraps the database schema
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create or upgrade the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		lg, err := newLogger()
		if err != nil {
			return err
		}
		defer lg.Sync()

		cfg := config.Load()
		cfg.AutoMigrate = true
		db, err := app.OpenDB(cmd.Context(), cfg, lg)
		if err != nil {
			return err
		}
		db.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "schema ready (embedding dimension %d)\n", cfg.EmbeddingDim)
		return nil
	},
}

var (
	userEmail string
	userName  string
)

// createUserCmd creates a user account
var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a user account",
	RunE: func(cmd *cobra.Command, args []string) error {
		lg, err := newLogger()
		if err != nil {
			return err
		}
		defer lg.Sync()

		db, err := app.OpenDB(cmd.Context(), config.Load(), lg)
		if err != nil {
			return err
		}
		defer db.Close()

		u, err := repository.NewUserRepository(db).Create(cmd.Context(), userEmail, userName)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user created\n  ID: %s\n  Email: %s\n", u.ID, u.Email)
		return nil
	},
}

var (
	revLaw       string
	revArticle   string
	revTitle     string
	revContent   string
	revFile      string
	revEffective string
)

// addRevisionCmd stores a statute revision and its index job
var addRevisionCmd = &cobra.Command{
	Use:   "add-revision",
	Short: "Store a statute revision and queue it for indexing",
	Long: `Store a statute revision and queue it for indexing.

The article text comes from --content or, when omitted, from --file.
A running index worker (server or 'legalctl index-worker') embeds it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		lg, err := newLogger()
		if err != nil {
			return err
		}
		defer lg.Sync()

		in := repository.NewRevision{
			LawName:       revLaw,
			ArticleNumber: revArticle,
			Title:         revTitle,
			Content:       revContent,
		}
		if in.Content == "" && revFile != "" {
			b, err := os.ReadFile(revFile)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", revFile, err)
			}
			in.Content = string(b)
		}
		if strings.TrimSpace(in.Content) == "" {
			return fmt.Errorf("revision content is empty")
		}
		if revEffective != "" {
			d, err := time.Parse(time.DateOnly, revEffective)
			if err != nil {
				return fmt.Errorf("--effective-date must be YYYY-MM-DD: %w", err)
			}
			in.EffectiveDate = &d
		}

		cfg := config.Load()
		db, err := app.OpenDB(cmd.Context(), cfg, lg)
		if err != nil {
			return err
		}
		defer db.Close()

		jobs := repository.NewIndexJobRepository(db)
		indexer := service.NewIndexingService(jobs, repository.NewLawRepository(db, jobs), nil, lg,
			service.IndexingWithMaxAttempts(cfg.IndexJobMaxAttempts))
		rev, job, err := indexer.SubmitRevision(cmd.Context(), in)
		if err != nil {
			return fmt.Errorf("failed to store revision: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "revision %d (%s) stored, index job %s %s\n", rev.ID, rev.SourceLabel(), job.ID, job.Status)
		return nil
	},
}

func init() {
	createUserCmd.Flags().StringVar(&userEmail, "email", "", "user email")
	createUserCmd.Flags().StringVar(&userName, "name", "", "display name")
	_ = createUserCmd.MarkFlagRequired("email")

	addRevisionCmd.Flags().StringVar(&revLaw, "law", "", "law name, e.g. 근로기준법")
	addRevisionCmd.Flags().StringVar(&revArticle, "article", "", "article number, e.g. 제27조")
	addRevisionCmd.Flags().StringVar(&revTitle, "title", "", "article title")
	addRevisionCmd.Flags().StringVar(&revContent, "content", "", "article text")
	addRevisionCmd.Flags().StringVar(&revFile, "file", "", "file holding the article text")
	addRevisionCmd.Flags().StringVar(&revEffective, "effective-date", "", "effective date (YYYY-MM-DD)")
	_ = addRevisionCmd.MarkFlagRequired("law")
	_ = addRevisionCmd.MarkFlagRequired("article")
}
