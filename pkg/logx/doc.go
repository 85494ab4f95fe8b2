// Package logx configures notifyd's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Optional alert sink that forwards high-severity records to a
//     platform sender (min-level + rate limiting)
//
// The alert sink is intended for concise operator visibility. Its sender
// must be built with a no-op logger so a failing alert delivery can never
// feed back into the sink.
package logx
