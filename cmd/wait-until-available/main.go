package main

import (
	"flag"
	"fmt"
	"net/http"
	"time"
)

// Usage example on the command line:
// > go run main.go -url=http://localhost:8080/health -interval=2s -timeout=2m
func main() {
	url := flag.String("url", "http://localhost:8080/health", "the health endpoint to poll")
	interval := flag.Duration("interval", 5*time.Second, "the pause between two attempts")
	timeout := flag.Duration("timeout", 0, "give up after this long; 0 waits forever")
	flag.Parse()

	client := &http.Client{Timeout: *interval}
	start := time.Now()
	for {
		res, err := client.Get(*url)
		if err == nil {
			res.Body.Close()
			if res.StatusCode == http.StatusOK {
				fmt.Println(res.Status)
				break
			}
			fmt.Println(res.Status)
		} else {
			fmt.Println(err)
		}
		waited := time.Since(start).Round(time.Second)
		if *timeout > 0 && waited >= *timeout {
			panic(fmt.Sprintf("service not available after %s", waited))
		}
		fmt.Printf("Waiting %s", waited)
		fmt.Println()
		time.Sleep(*interval)
	}
}
