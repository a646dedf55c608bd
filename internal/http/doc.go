// Package http exposes the class scheduler over a JSON API.
//
// The router exposes the following endpoints:
//   - POST /batches/plan: expands a recurrence rule into a manifest of accepted
//     sessions and rejected drafts without storing anything. The manifest
//     carries a digest of the plan.
//   - POST /batches/commit: commits the same batch body plus the reviewed `digest`.
//     Answers 201 with the stored sessions, 409 STALE_PLAN when the schedule
//     changed since the preview and 409 BATCH_REJECTED with the fresh manifest
//     when any draft collides.
//   - GET /sessions, GET /sessions/{id}, GET /sessions/{id}/events: session
//     queries. Listing accepts `from`, `to`, `teacher_id`, `classroom_id`,
//     `class_id` and a comma separated `status`.
//   - POST /sessions/{id}/reschedule, /substitute, /cancel, /complete: lifecycle
//     operations. Conflicts answer 409 SCHEDULE_CONFLICT with the colliding
//     sessions and terminal sessions answer 409 INVALID_TRANSITION.
//   - POST /conflicts/check: reports collisions for an ad hoc draft.
//   - GET /holidays?year=, PUT /holidays/{date}, DELETE /holidays/{date}: holiday
//     calendar maintenance.
//   - GET /healthz: 204 when storage answers.
//
// Validation failures answer 422 with localized messages keyed by JSON field.
package http
