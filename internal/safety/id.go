package safety

import (
	"strconv"

	"github.com/google/uuid"
)

// entityNamespace scopes entity IDs so they never collide with other
// name-based UUIDs.
var entityNamespace = uuid.MustParse("5b0c7e52-3f7a-4c1e-9d2b-8a61f0c4e7d9")

// EntityID derives a stable ID from document, type and span. Re-running the
// pipeline on the same input yields the same IDs.
func EntityID(documentID string, t EntityType, start, end int) string {
	key := documentID + "\x00" + string(t) + "\x00" + strconv.Itoa(start) + ":" + strconv.Itoa(end)
	return uuid.NewSHA1(entityNamespace, []byte(key)).String()
}
