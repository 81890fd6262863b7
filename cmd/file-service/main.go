// Точка входа File Service — загрузка файлов с выдачей уникальных имён,
// скачивание и просмотр в браузере.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
