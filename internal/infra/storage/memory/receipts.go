package memory

import (
	"context"
	"fmt"
	"sync"

	"travelbooking/internal/app/policies"
)

// Receipts keeps archived receipt documents in memory.
type Receipts struct {
	mu   sync.Mutex
	docs map[string][][]byte
}

func NewReceipts() *Receipts {
	return &Receipts{docs: make(map[string][][]byte)}
}

func (r *Receipts) Archive(_ context.Context, bookingID string, document []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[bookingID] = append(r.docs[bookingID], append([]byte(nil), document...))
	return fmt.Sprintf("memory://receipts/%s/%d", bookingID, len(r.docs[bookingID])), nil
}

// For returns copies of every receipt archived for the booking.
func (r *Receipts) For(bookingID string) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, 0, len(r.docs[bookingID]))
	for _, doc := range r.docs[bookingID] {
		out = append(out, append([]byte(nil), doc...))
	}
	return out
}

var _ policies.ReceiptArchiver = (*Receipts)(nil)
