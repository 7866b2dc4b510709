/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ballast",
	Short: "Reliability pipeline for multi-tenant scheduling backends",
	Long: `ballast runs the reliability pipeline behind a multi-tenant scheduling
backend: an idempotent request layer, a transactional outbox, a background
job scheduler with workers, and signed calendar webhook ingestion.

Each process is a subcommand: server, outbox-worker, job-worker, consumer,
migration, seed.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}
