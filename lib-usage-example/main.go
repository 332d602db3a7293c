package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flashmemo/flashmemo/pkg/intake"
	"github.com/flashmemo/flashmemo/pkg/linkurl"
	"github.com/flashmemo/flashmemo/pkg/storage"
)

func main() {
	// Usage: go run . -user alice "youtube://watch?v=dQw4w9WgXcQ" "myapp://share?url=https%3A%2F%2Fexample.com"

	userFlag := flag.String("user", "me", "Owner of the saved links")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Println("At least one shared string is required.")
		return
	}

	// The pure core needs no setup.
	for _, raw := range flag.Args() {
		fmt.Println(linkurl.Normalize(raw), linkurl.Classify(raw))
	}

	dir, err := os.MkdirTemp("", "flashmemo-example")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)

	db, err := storage.Open(filepath.Join(dir, "example.sqlite"))
	if err != nil {
		fmt.Println(err)
		return
	}
	defer db.Close()

	h := intake.NewHandler(db)
	for _, raw := range flag.Args() {
		res, err := h.Handle(context.Background(), *userFlag, intake.PayloadFor(raw))
		if err != nil {
			fmt.Printf("%q: %s (%v)\n", raw, res.Status, err)
			continue
		}
		fmt.Printf("%q: %s %s [%s]\n", raw, res.Message, res.Link.URL, res.App)
	}
}
