// Package http exposes the election services over JSON.
//
// Public endpoints:
//   - GET /voting?token=&position=: the current ballot step (`ballotDTO`). The
//     state is one of no_active_session, presenting_ballot or completed.
//   - POST /voting: records a vote (`voteRequest`) and returns the next step.
//     A repeated vote for a position answers 200 with duplicate=true.
//   - GET /api/vote_counts/{position_id}: live counts while voting is open, [] otherwise.
//   - POST /nominations: candidacy intake (`nominationRequest`).
//   - GET /results: the frozen results of the newest published session.
//   - GET /labels/{form_type}: intake form labels for nominee or voter.
//   - GET /health, GET /metrics.
//
// Administrator endpoints require the X-Admin-Key header:
//   - GET/POST /admin/sessions, POST /admin/sessions/{id}/transition {"phase"},
//     POST /admin/sessions/{id}/publish.
//   - GET/POST /admin/positions, DELETE /admin/positions/{id}.
//   - GET /admin/nominations?session_id=, POST /admin/nominations/approval {"ids","approved"}.
//   - GET /admin/results?session_id=.
//   - PUT /admin/labels/{form_type}/{field} {"label"}.
//
// Request/response DTOs live alongside their respective handlers.
package http
