// Package http implements the grading REST API on gin.
//
// Exercises:
//
//	GET    /exercises                            list summaries (?framework=)
//	GET    /exercises/:framework/:pattern        learner-facing content
//	GET    /exercises/:framework/:pattern/stats  run statistics
//	POST   /analyze                              analyze a skeleton
//
// Sessions:
//
//	POST   /sessions                             open a session
//	DELETE /sessions/:id                         close it
//	POST   /sessions/:id/submissions             submit, returns run_id
//	POST   /sessions/:id/grade                   submit and wait
//	GET    /sessions/:id/runs/:runId             run snapshot
//
// Domain errors map to 404, 400, 409 and 503; a run that could not be
// verified is still a 200 with status timed_out or crashed.
package http
