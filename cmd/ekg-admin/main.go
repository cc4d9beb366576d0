// Точка входа EKG Admin — консоль оператора для загрузки документов
// в удалённый индекс (OpenAI Vector Stores) из браузера и Google Drive.
package main

import (
	"fmt"
	"os"

	"github.com/vinaykumarvk/create-EKG/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ekg-admin: %v\n", err)
		os.Exit(1)
	}
}
