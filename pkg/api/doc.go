// Package api serves the internal current team API.
//
// Routes, relative to the base path (default /api/internal/v1):
//
//	GET /current_team                                    organization.read
//	PUT /current_team                                    organization.update
//	GET /current_team/get_telegram_verification_code     organization.telegram_verification_code
//	GET /current_team/get_channel_verification_code      organization.channel_verification_code
//
// Every route is wrapped by gate.Handle, which answers 401, 403 and 400
// before a handler runs. The channel code route selects its messaging
// backend with the "backend" query parameter. Verification code responses
// are the code as a bare JSON string.
package api
