package loans

import (
	"context"
	"log"
	"sync"
	"time"
)

// OverdueCounter is the slice of the store the sweeper needs.
type OverdueCounter interface {
	CountOverdue(ctx context.Context, now time.Time) (int64, error)
}

// StartOverdueSweeper launches a background goroutine that periodically
// counts open loans past their due date and logs the result. It never
// writes loan state: status is derived, so overdue loans need no marking.
// The returned WaitGroup is done once the sweeper has observed stopChan
// and exited.
func StartOverdueSweeper(store OverdueCounter, interval time.Duration, stopChan <-chan struct{}) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Printf("overdue sweeper started (interval %s)", interval)
		for {
			select {
			case <-stopChan:
				log.Println("overdue sweeper stopping")
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				count, err := store.CountOverdue(ctx, time.Now())
				cancel()
				if err != nil {
					log.Printf("overdue sweep failed: %v", err)
					continue
				}
				if count > 0 {
					log.Printf("overdue sweep: %d loan(s) past due", count)
				}
			}
		}
	}()

	return &wg
}
