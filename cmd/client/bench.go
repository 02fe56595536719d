package main

import (
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	api "gitlab.com/dirk.krummacker/address-book/pkg/model"
)

var benchSizes []int

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure the average latency of POST, PUT, GET and DELETE requests",
	Long: `Bench creates, updates, reads and deletes the given numbers of contacts and
prints the average latency per request in microseconds.`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().IntSliceVar(&benchSizes, "sizes", []int{1000, 5000, 10000}, "numbers of contacts per round")
}

func runBench(cmd *cobra.Command, args []string) error {
	fmt.Println()
	fmt.Println("  Elements      POST       PUT       GET    DELETE ")
	fmt.Println("---------------------------------------------------")
	for _, loops := range benchSizes {
		if loops <= 0 {
			return fmt.Errorf("invalid size %d", loops)
		}
	}
	run := time.Now().UnixNano() % 1_000_000
	for round, loops := range benchSizes {
		fmt.Printf("%10d", loops)
		ids := make([]int64, 0, loops)
		{
			// POST requests
			var duration time.Duration
			for i := 0; i < loops; i++ {
				id, d, err := postContact(benchContact(run, round, i))
				if err != nil {
					return err
				}
				ids = append(ids, id)
				duration += d
			}
			fmt.Printf("%10d", duration.Microseconds()/int64(loops))
		}
		{
			// PUT requests
			notes := "Consul in 44 BC"
			update := api.Contact{Notes: &notes}
			if err := callInLoop(ids, func(id int64) (time.Duration, error) {
				return call(http.MethodPut, fmt.Sprintf("/contacts/%d", id), update, nil)
			}); err != nil {
				return err
			}
		}
		{
			// GET requests
			if err := callInLoop(ids, func(id int64) (time.Duration, error) {
				return call(http.MethodGet, fmt.Sprintf("/contacts/%d", id), nil, nil)
			}); err != nil {
				return err
			}
		}
		{
			// DELETE requests
			if err := callInLoop(ids, func(id int64) (time.Duration, error) {
				return call(http.MethodDelete, fmt.Sprintf("/contacts/%d", id), nil, nil)
			}); err != nil {
				return err
			}
		}
		fmt.Println()
	}
	return nil
}

// benchContact returns a contact whose phone number is unique within the run.
func benchContact(run int64, round int, i int) api.Contact {
	name := "Marcus Antonius"
	phone := fmt.Sprintf("39%06d%02d%07d", run, round, i)
	email := "marcus@antonius.it"
	return api.Contact{Name: &name, PhoneNumber: &phone, Email: &email}
}

func postContact(contact api.Contact) (int64, time.Duration, error) {
	var created api.Contact
	duration, err := call(http.MethodPost, "/contacts", contact, &created)
	return created.Id, duration, err
}

func callInLoop(ids []int64, f func(id int64) (time.Duration, error)) error {
	shuffled := append([]int64(nil), ids...)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	var duration time.Duration
	for _, id := range shuffled {
		d, err := f(id)
		if err != nil {
			return err
		}
		duration += d
	}
	fmt.Printf("%10d", duration.Microseconds()/int64(len(shuffled)))
	return nil
}
