package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"gitlab.com/dirk.krummacker/address-book/internal/config"
	"gitlab.com/dirk.krummacker/address-book/internal/store"
)

// Usage example on the command line:
// > DBHOST=localhost DBUSER=dirk DBPWD=bullo92 go run main.go
// > DBHOST=localhost DBUSER=dirk DBPWD=bullo92 go run main.go -file=../../scripts/seed.sql
func main() {
	filePtr := flag.String("file", "", "the sql file to execute instead of the built-in schema")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("could not load configuration", err)
		panic(err)
	}
	sqlDB, err := store.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		panic(err)
	}
	defer sqlDB.Close()

	ctx := context.Background()
	if *filePtr == "" {
		if err := store.Migrate(ctx, sqlDB, cfg.DBDriver); err != nil {
			panic(err)
		}
		fmt.Printf("created %s schema\n", cfg.DBDriver)
		return
	}

	readFile, err := os.Open(*filePtr) // nosemgrep
	if err != nil {
		panic(err)
	}
	defer readFile.Close()
	if err := store.ExecScript(ctx, sqlDB, readFile); err != nil {
		panic(err)
	}
	fmt.Printf("executed %s\n", *filePtr)
}
