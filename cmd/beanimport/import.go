package main

import (
	"context"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/samuellwn/beanimport/driver"
	"github.com/samuellwn/beanimport/extract"
	"github.com/samuellwn/beanimport/tmplenv"
	"github.com/samuellwn/beanimport/tools"
)

var (
	importWorkdir        string
	importBeanfile       string
	importConfig         string
	importRemoveDangling bool
	importLogLevel       string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Extract, evaluate, and reconcile transactions against a ledger file tree",
	Run:   runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	cwd, _ := os.Getwd()
	importCmd.Flags().StringVarP(&importWorkdir, "workdir", "w", cwd, "The beanimport project path to work on")
	importCmd.Flags().StringVarP(&importBeanfile, "beanfile", "b", "main.bean", "The path to main entry beancount file")
	importCmd.Flags().StringVarP(&importConfig, "config", "c", ".beanimport.yaml", "The path to the import config file")
	importCmd.Flags().BoolVar(&importRemoveDangling, "remove-dangling", false,
		"Remove dangling transactions (existing imported transactions without a corresponding generated transaction)")
	importCmd.Flags().StringVarP(&importLogLevel, "log-level", "l", defaultLogLevel(),
		"Log level: verbose, debug, info, warning, error, fatal")
}

func runImport(cmd *cobra.Command, args []string) {
	logger := tools.HandleErrV(newLogger(importLogLevel))
	defer logger.Sync()

	d := &driver.Driver{
		Fs:               afero.NewOsFs(),
		Workdir:          importWorkdir,
		ConfigPath:       importConfig,
		BeanfilePath:     importBeanfile,
		RemoveDangling:   importRemoveDangling,
		Env:              tmplenv.New(),
		Logger:           logger,
		ExtractorFactory: extract.NewExtractor,
	}

	if _, err := d.Run(context.Background()); err != nil {
		logger.Error("import failed", zap.Error(err))
		os.Exit(1)
	}
}
