// Package notify delivers short text notifications to chat platforms.
//
// Each platform sender validates its configuration at construction and
// manages one HTTP client: either created lazily and owned by the sender,
// or supplied by the caller and never closed here. Delivery outcomes are
// classified into a Result; transport failures are absorbed into the
// Result plus a log line instead of surfacing as errors. The single
// error a Send can return is ErrExternalClientClosed, which marks a
// caller contract violation (a borrowed client that is no longer usable).
package notify
