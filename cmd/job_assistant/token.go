package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-assistant/internal/config"
	"github.com/jonathan/job-assistant/internal/server"
)

var (
	tokenSubject string
	tokenHours   int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the REST API",
	Long:  `Sign a bearer token with JWT_SECRET. Hours defaults to JWT_EXPIRATION_HOURS.`,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "Token subject (required)")
	tokenCmd.Flags().IntVar(&tokenHours, "hours", 0, "Token lifetime in hours")
	_ = tokenCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(tokenCmd)
}

func mintToken(getenv func(string) string, subject string, hours int) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("--subject must not be empty")
	}
	if hours < 0 {
		return "", fmt.Errorf("--hours must not be negative")
	}
	cfg, err := config.JWTConfigFromEnv(getenv)
	if err != nil {
		return "", err
	}
	return server.NewJWTService(cfg).GenerateToken(subject, time.Duration(hours)*time.Hour)
}

func runToken(cmd *cobra.Command, _ []string) error {
	token, err := mintToken(os.Getenv, tokenSubject, tokenHours)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
