package sync

import (
	"fmt"
	"time"
)

// tempTaskID builds the provisional id carried by a task until the store
// assigns its permanent one. The sequence number keeps ids distinct when
// two adds land in the same millisecond.
func tempTaskID(now time.Time, seq uint64) string {
	return fmt.Sprintf("temp-%d-%d", now.UnixMilli(), seq)
}
