package cache

import (
	"fmt"
	"sort"

	"github.com/saransh1220/notification-service/internal/modules/notification/domain"
	"github.com/vmihailenco/msgpack/v5"
)

func encode(n *domain.Notification) ([]byte, error) {
	data, err := msgpack.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode notification %d: %w", n.ID, err)
	}
	return data, nil
}

// newestFirst orders like the store: created_at DESC, id DESC.
func newestFirst(ns []*domain.Notification) {
	sort.SliceStable(ns, func(i, j int) bool {
		if si, sj := ns[i].Score(), ns[j].Score(); si != sj {
			return si > sj
		}
		return ns[i].ID > ns[j].ID
	})
}

func decode(data []byte) (*domain.Notification, error) {
	var n domain.Notification
	if err := msgpack.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decode notification snapshot: %w", err)
	}
	// msgpack hands back local time; the store reads UTC.
	n.CreatedAt = n.CreatedAt.UTC()
	return &n, nil
}
