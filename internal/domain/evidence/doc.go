// Package evidence turns raw evidence into clean query text.
//
// It holds three pure transforms with no I/O and no shared state:
//
//   - Clean strips chat-export noise, masks phone numbers and normalizes
//     elongation, emoji and whitespace.
//   - Reconstruct rebuilds reading order from unordered OCR word boxes.
//   - Align assigns diarized speakers to transcript segments by overlap.
//
// All functions tolerate empty input and are safe for concurrent use.
package evidence
