package config

type WorkerKeyStruct struct {
	PersistProgressQueue   string
	WritingEvaluationQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistProgressQueue:   "persist_progress_queue",
	WritingEvaluationQueue: "writing_evaluation_queue",
}
