package main

import (
	"os"

	foldermatecmder "github.com/foldermate/foldermate/cmd/foldermate"
)

func main() {
	cmd := foldermatecmder.NewFoldermateCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
