package dto

// TaskTypeIndex is the only task type carried on the queue today. Deletes
// never go through the queue; they are applied synchronously before the
// tasks are published.
const TaskTypeIndex = "index"

// IndexTaskMessage is the queue payload for one batch of indexing work.
// Workers process the ids one by one with per-document failure isolation.
type IndexTaskMessage struct {
	TaskType  string   `json:"task_type"`
	SourceIds []string `json:"document_ids"`
}
