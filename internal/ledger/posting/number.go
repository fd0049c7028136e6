package posting

import (
	"fmt"
	"time"
)

// FormatEntryNo builds the human-readable entry number for the given
// posting date and day-scoped sequence, e.g. JE-20240131-0007.
// Uniqueness is enforced by the database; on collision the caller
// regenerates and retries.
func FormatEntryNo(date time.Time, seq int) string {
	return fmt.Sprintf("JE-%s-%04d", date.Format("20060102"), seq)
}
