// Package http implements the HTTP handlers of the wexport service. Handlers
// stay thin: they bind the request, call a service and render the result.
//
// # Routes
//
//	POST   /api/export                     run an export, returns a download URL
//	POST   /api/export/preview             first batch as CSV text
//	GET    /api/export/download/{key}      one-shot file download (key is the credential)
//	GET    /api/export/logs?limit=         recent export runs
//	GET    /api/export/stats               export log aggregate
//	GET    /api/templates                  list the caller's templates
//	POST   /api/templates                  create a template
//	GET    /api/templates/default          the caller's default template
//	GET    /api/templates/export?ids=      templates as a JSON attachment
//	POST   /api/templates/import           import a template JSON document
//	GET    /api/templates/{id}             read
//	PUT    /api/templates/{id}             update, or rename when config is omitted
//	DELETE /api/templates/{id}             delete
//	POST   /api/templates/{id}/duplicate   copy, optionally under a new name
//	POST   /api/templates/{id}/default     mark as the caller's default
//	POST   /api/import                     parse an uploaded CSV or XLSX file
//	GET    /api/health                     health, readiness, liveness, version
//
// # Error Handling
//
// Service sentinels are mapped to apierrors values by toAPIError and
// rendered as RFC 7807 problems by the shared ErrorHandler. Errors without a
// mapping become a generic 500 that never echoes the cause.
package http
