package main

import (
	"github.com/spf13/cobra"

	"github.com/bigkaa/goartstore/file-service/internal/config"
)

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	cmd := &cobra.Command{
		Use:           "file-service",
		Short:         "File Service — загрузка, скачивание и просмотр файлов",
		Long:          "Конфигурация задаётся переменными окружения с префиксом FS_.",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Без подкоманды запускается сервер.
		RunE: serve.RunE,
	}

	cmd.AddCommand(
		serve,
		newMigrateCmd(),
		newVersionCmd(),
	)

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Показать версию",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(config.Version)
		},
	}
}
