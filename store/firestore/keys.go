package firestore

import (
	"strconv"
	"strings"
)

// Document field names shared by both collections.
const (
	fieldThreadID           = "thread_id"
	fieldCheckpointNS       = "checkpoint_ns"
	fieldCheckpointID       = "checkpoint_id"
	fieldParentCheckpointID = "parent_checkpoint_id"
	fieldType               = "type"
	fieldCheckpoint         = "checkpoint"
	fieldMetadata           = "metadata"
	fieldMetadataFields     = "metadata_fields"
	fieldTaskID             = "task_id"
	fieldIdx                = "idx"
	fieldChannel            = "channel"
	fieldValue              = "value"
)

const keyDelimiter = "|"

var keyEscaper = strings.NewReplacer(
	"%", "%25",
	"|", "%7C",
	"/", "%2F",
)

// escapeKeyPart makes s safe to join with keyDelimiter and to use inside a
// Firestore document id.
func escapeKeyPart(s string) string {
	return keyEscaper.Replace(s)
}

func joinKey(parts ...string) string {
	for i, p := range parts {
		parts[i] = escapeKeyPart(p)
	}
	// Firestore reserves ids matching __.*__.
	if strings.HasPrefix(parts[0], "_") {
		parts[0] = "%5F" + parts[0][1:]
	}
	return strings.Join(parts, keyDelimiter)
}

func checkpointDocID(threadID, checkpointNS, checkpointID string) string {
	return joinKey(threadID, checkpointNS, checkpointID)
}

func writeDocID(threadID, checkpointNS, checkpointID, taskID string, idx int) string {
	return joinKey(threadID, checkpointNS, checkpointID, taskID, strconv.Itoa(idx))
}
