package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/yungbote/neurobridge-export/internal/app"
	"github.com/yungbote/neurobridge-export/internal/data/db"
	"github.com/yungbote/neurobridge-export/internal/modules/courseimport"
)

func main() {
	var (
		file    string
		migrate bool
	)
	flag.StringVar(&file, "file", "", "course document (YAML or JSON)")
	flag.BoolVar(&migrate, "migrate", false, "run schema migrations first")
	flag.Parse()

	if file == "" {
		fmt.Println("-file is required")
		os.Exit(2)
	}
	doc, err := courseimport.LoadFile(file)
	if err != nil {
		fmt.Printf("load %s: %v\n", file, err)
		os.Exit(1)
	}

	ctx := context.Background()
	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	if migrate {
		if err := db.AutoMigrateAll(application.DB); err != nil {
			fmt.Printf("migrate: %v\n", err)
			application.Close()
			os.Exit(1)
		}
	}

	importer := courseimport.NewImporter(application.DB, application.Log, application.Repos.CourseContent)
	id, err := importer.Import(ctx, doc)
	if err != nil {
		fmt.Printf("import failed: %v\n", err)
		application.Close()
		os.Exit(1)
	}
	fmt.Printf("imported course %s\n", id)
}
