package config

type WorkerKeyStruct struct {
	ContentEventsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	ContentEventsQueue: "content_events_queue",
}
