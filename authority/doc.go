// Package authority provides a remote implementation of goalert.Authority.
//
// The trusted backend exposes three JSON RPCs under /rpc: check_rate_limit,
// validate_input and verify_contact_ownership. Client posts to them with a
// service key and decodes the bare JSON result. Any transport failure is
// returned as an error so the engine fails closed.
package authority
