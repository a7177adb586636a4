// Command searchengine builds an inverted index from text files or a web
// crawl, answers a file of queries and can serve searches over HTTP.
//
//	searchengine -path input/ -index -counts -queries queries.txt -results
//	searchengine -url https://example.com/ -max 50 -threads 8 -server 8080
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := app.Run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}
