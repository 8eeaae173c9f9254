package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"legalcheck-backend/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	checkUser    string
	checkSession string
	checkImage   string
	checkOutput  string
)

// checkCmd runs one turn through the full pipeline
var checkCmd = &cobra.Command{
	Use:   "check <query>",
	Short: "Run one fact-check turn",
	Long: `Run one fact-check turn through the full pipeline and print the result.

Without --user the turn is not persisted. With --user it is stored in a new
session, or in --session when given. --image attaches a local image.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var image string
		if checkImage != "" {
			b, err := os.ReadFile(checkImage)
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			image = "data:" + http.DetectContentType(b) + ";base64," + base64.StdEncoding.EncodeToString(b)
		}

		var req *service.CheckRequest
		if checkUser != "" {
			userID, err := uuid.Parse(checkUser)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			req = &service.CheckRequest{UserID: userID, Query: args[0], ImageBase64: image}
			if checkSession != "" {
				sid, err := uuid.Parse(checkSession)
				if err != nil {
					return fmt.Errorf("invalid --session: %w", err)
				}
				req.SessionID = &sid
			}
		}

		a, lg, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer lg.Sync()
		defer a.Close()

		var res any
		if req != nil {
			res, err = a.FactCheck.Check(cmd.Context(), *req)
		} else {
			res, err = a.Pipeline.Run(cmd.Context(), service.TurnInput{Query: args[0], ImageBase64: image})
		}
		if err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), checkOutput, res)
	},
}

func writeResult(w io.Writer, format string, v any) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

func init() {
	checkCmd.Flags().StringVar(&checkUser, "user", "", "user id; persists the turn when set")
	checkCmd.Flags().StringVar(&checkSession, "session", "", "existing session id")
	checkCmd.Flags().StringVar(&checkImage, "image", "", "image file to attach")
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "json", "output format (json or yaml)")
}
