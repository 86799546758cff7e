package wallet

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Delivery is an inbound message addressed to a wallet instance.
type Delivery struct {
	Wallet  *Wallet
	Inbound Inbound
}

// BatchResult is the outcome of one Delivery. Err is the exit error of a
// rejected message.
type BatchResult struct {
	Result Result
	Err    error
}

// ProcessBatch processes deliveries to different wallets in parallel and
// deliveries to the same wallet one after the other, in input order. A
// wallet is identified by its owner and minter, so two *Wallet values built
// from the same data share a queue. The returned slice is aligned with
// deliveries. Rejected messages are reported per delivery; the call itself
// only fails on invalid input or when ctx is done, in which case
// unprocessed deliveries carry ctx's error.
func ProcessBatch(ctx context.Context, deliveries []Delivery) ([]BatchResult, error) {
	// indices of deliveries per wallet, in input order
	queues := make(map[string][]int)
	var order []string
	for i, d := range deliveries {
		if d.Wallet == nil {
			return nil, fmt.Errorf("delivery %d has no wallet", i)
		}
		key := queueKey(d.Wallet)
		if _, ok := queues[key]; !ok {
			order = append(order, key)
		}
		queues[key] = append(queues[key], i)
	}

	results := make([]BatchResult, len(deliveries))
	g, gctx := errgroup.WithContext(ctx)
	for _, key := range order {
		queue := queues[key]
		g.Go(func() error {
			for n, i := range queue {
				if err := gctx.Err(); err != nil {
					for _, j := range queue[n:] {
						results[j].Err = err
					}
					return err
				}
				res, err := deliveries[i].Wallet.Process(gctx, deliveries[i].Inbound)
				results[i] = BatchResult{Result: res, Err: err}
			}
			return nil
		})
	}
	return results, g.Wait()
}

func queueKey(w *Wallet) string {
	return w.Minter().StringRaw() + "/" + w.Owner().StringRaw()
}
