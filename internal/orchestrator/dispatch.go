package orchestrator

// DispatchTable is the constant task_type -> symbolic handler id mapping
// from spec §6, grounded on
// original_source/backend/apps/api/services/orchestrator.py's
// ACTION_TO_CELERY_TASK.
var DispatchTable = map[string]string{
	"search_companies": "workers.tasks.company_search",
	"find_contacts":    "workers.tasks.contact_finder",
	"collect_news":     "workers.tasks.news_collector",
	"generate_emails":  "workers.tasks.email_generator",
	"schedule_emails":  "workers.tasks.scheduler",
	"update_pipeline":  "workers.tasks.pipeline_bant",
}

// HandlerFor returns the symbolic handler id for taskType and whether it
// is known.
func HandlerFor(taskType string) (string, bool) {
	id, ok := DispatchTable[taskType]
	return id, ok
}
